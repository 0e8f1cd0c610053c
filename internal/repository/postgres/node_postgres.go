package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"siteadmin/internal/idgen"
	"siteadmin/internal/repository"
)

// NodePostgres is a PostgreSQL implementation of repository.Repository.
// Each non-object value is one row of the nodes table keyed by its full path;
// objects are assembled from their descendant rows on read.
type NodePostgres struct {
	db       *sql.DB
	broker   *repository.Broker
	notifier repository.Notifier
	newKey   func() string
}

// NewNodePostgres creates a NodePostgres. Committed changes wake local
// subscribers through broker and are relayed through notifier when it is set.
func NewNodePostgres(db *sql.DB, broker *repository.Broker, notifier repository.Notifier) *NodePostgres {
	return &NodePostgres{db: db, broker: broker, notifier: notifier, newKey: idgen.PushKey}
}

var _ repository.Repository = (*NodePostgres)(nil)

const (
	qSelectSubtree = `
		SELECT path, value
		FROM nodes
		WHERE path = $1 OR starts_with(path, $2)
	`
	qDeleteSubtree = `DELETE FROM nodes WHERE path = $1 OR starts_with(path, $2)`
	qDeleteNode    = `DELETE FROM nodes WHERE path = $1`
	qUpsertNode    = `
		INSERT INTO nodes (path, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
)

// Get reads every row at or below path and assembles the value.
func (r *NodePostgres) Get(ctx context.Context, path string) (repository.Snapshot, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return repository.Snapshot{}, err
	}

	rows, err := r.db.QueryContext(ctx, qSelectSubtree, path, path+"/")
	if err != nil {
		return repository.Snapshot{}, err
	}
	defer rows.Close()

	leaves := repository.Leaves{}
	for rows.Next() {
		var (
			p     string
			value []byte
		)
		if err := rows.Scan(&p, &value); err != nil {
			return repository.Snapshot{}, err
		}
		leaves[p] = value
	}
	if err := rows.Err(); err != nil {
		return repository.Snapshot{}, err
	}

	value, err := repository.Assemble(path, leaves)
	if err != nil {
		return repository.Snapshot{}, err
	}
	return repository.Snapshot{Path: path, Value: value}, nil
}

func (r *NodePostgres) Subscribe(ctx context.Context, path string) (*repository.Subscription, error) {
	path, err := repository.CleanPath(path)
	if err != nil {
		return nil, err
	}
	return r.broker.Subscribe(ctx, path, r.Get)
}

// Mutate applies the operation in one transaction and signals the change
// after commit.
func (r *NodePostgres) Mutate(ctx context.Context, path string, op repository.Operation) (repository.Result, error) {
	plan, err := repository.Prepare(path, op, r.newKey)
	if err != nil {
		return repository.Result{}, err
	}
	if len(plan.Writes) == 0 {
		return plan.Result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sort.Slice(plan.Writes, func(i, j int) bool { return plan.Writes[i].Path < plan.Writes[j].Path })
	for _, w := range plan.Writes {
		if err := applyWrite(ctx, tx, w); err != nil {
			return repository.Result{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.Result{}, fmt.Errorf("commit: %w", err)
	}

	r.broker.Announce(ctx, r.notifier, plan.Result.Path)
	return plan.Result, nil
}

func applyWrite(ctx context.Context, tx *sql.Tx, w repository.Write) error {
	if _, err := tx.ExecContext(ctx, qDeleteSubtree, w.Path, w.Path+"/"); err != nil {
		return fmt.Errorf("clear %s: %w", w.Path, err)
	}
	if len(w.Leaves) > 0 {
		for _, a := range repository.Ancestors(w.Path) {
			if _, err := tx.ExecContext(ctx, qDeleteNode, a); err != nil {
				return fmt.Errorf("clear ancestor %s: %w", a, err)
			}
		}
	}

	paths := make([]string, 0, len(w.Leaves))
	for p := range w.Leaves {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, qUpsertNode, p, string(w.Leaves[p])); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}
