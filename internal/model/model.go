// Package model contains the records stored under the site's content paths.
// Field names follow the JSON layout the public site already reads.
package model

// Store paths for each entity.
const (
	PathDocuments     = "site_documents"
	PathFiles         = "files"
	PathTeamMembers   = "team_members"
	PathContactInfo   = "contact_info"
	PathBusinessHours = "business_hours"
	PathSiteIdentity  = "site_identity"
)

// Blob key prefixes for each upload kind.
const (
	BlobPrefixDocuments = "documents"
	BlobPrefixFiles     = "uploads"
	BlobPrefixTeam      = "team-images"
	BlobPrefixBranding  = "branding"
)

// SubscribablePaths are the top-level paths clients may stream.
var SubscribablePaths = map[string]bool{
	PathDocuments:     true,
	PathFiles:         true,
	PathTeamMembers:   true,
	PathContactInfo:   true,
	PathBusinessHours: true,
	PathSiteIdentity:  true,
}
