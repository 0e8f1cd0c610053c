package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"siteadmin/internal/idgen"
	"siteadmin/internal/repository"
	"siteadmin/internal/storage"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrTooLarge         = errors.New("file exceeds the upload size limit")
	ErrUploadInProgress = errors.New("an upload is already in progress for this form")
	ErrNotFound         = errors.New("record not found")
	ErrInvalidID        = errors.New("invalid id")
)

const (
	editorDocuments = "documents"
	editorFiles     = "files"
	editorTeam      = "team"
	editorBranding  = "branding"
	editorContact   = "contact"
)

var tracer = otel.Tracer("siteadmin/internal/service")

// ValidationError lists rejected fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags and converts failures to a ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// Metrics counts workflow outcomes.
type Metrics struct {
	uploads            *prometheus.CounterVec
	blobDeleteFailures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteadmin_uploads_total",
				Help: "Upload-and-register workflows by editor and outcome.",
			},
			[]string{"editor", "result"},
		),
		blobDeleteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "siteadmin_blob_delete_failures_total",
				Help: "Best-effort blob deletions that did not succeed.",
			},
			[]string{"editor"},
		),
	}
	for _, c := range []prometheus.Collector{m.uploads, m.blobDeleteFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) upload(editor, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(editor, result).Inc()
}

func (m *Metrics) blobDeleteFailed(editor string) {
	if m == nil {
		return
	}
	m.blobDeleteFailures.WithLabelValues(editor).Inc()
}

// Deps are the collaborators shared by every editor service.
type Deps struct {
	Repo           repository.Repository
	Store          storage.Storage
	Tracker        *UploadTracker
	Metrics        *Metrics
	Logger         *zap.Logger
	Location       *time.Location
	MaxUploadBytes int64
	Clock          *idgen.Clock
	Now            func() time.Time
}

type base struct {
	repo repository.Repository
	up   *uploader
	log  *zap.Logger
	loc  *time.Location
	now  func() time.Time
}

func newBase(d Deps) base {
	if d.Tracker == nil {
		d.Tracker = NewUploadTracker()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = idgen.NewClock(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return base{
		repo: d.Repo,
		up: &uploader{
			store:    d.Store,
			tracker:  d.Tracker,
			clock:    d.Clock,
			maxBytes: d.MaxUploadBytes,
			metrics:  d.Metrics,
			log:      d.Logger,
		},
		log: d.Logger,
		loc: d.Location,
		now: d.Now,
	}
}

// recordPath validates id as a single key and joins it under collection.
func recordPath(collection, id string) (string, error) {
	if !repository.ValidKey(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return repository.Join(collection, id), nil
}

// load decodes the record at p into v, returning ErrNotFound when absent.
func (b base) load(ctx context.Context, p string, v any) error {
	snap, err := b.repo.Get(ctx, p)
	if err != nil {
		return fmt.Errorf("load %s: %w", p, err)
	}
	if !snap.Exists() {
		return ErrNotFound
	}
	if err := snap.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}

func decodeChild(c repository.Child, v any) error {
	return json.Unmarshal(c.Value, v)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func formatKB(n int64) string {
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

const (
	uploadedAtLayout = "1/2/2006, 3:04:05 PM"
	uploadDateLayout = "02/01/2006"
)

// blobKey builds "<prefix>/<millis>_<name>" from the client file name.
func blobKey(prefix string, millis int64, filename string) string {
	name := strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d_%s", prefix, millis, name)
}
