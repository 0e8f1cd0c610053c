package model

import "time"

// Document is a public download listed on the site, stored under site_documents/<id>.
// ID is the store key and is never written into the record itself.
type Document struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Size        string `json:"size"`
	UploadedAt  string `json:"uploadedAt"`
	IsVisible   bool   `json:"isVisible"`
	StoragePath string `json:"storagePath"`
}

// File is an entry of the categorized file catalog, stored under files/<id>.
type File struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Size        string `json:"size"`
	UploadDate  string `json:"uploadDate"`
	FileURL     string `json:"fileUrl"`
	ShowOnSite  bool   `json:"showOnSite"`
	StoragePath string `json:"storagePath"`
}

// FileCategories are the accepted File.Category values.
var FileCategories = []string{"Marketing", "Finance", "HR", "Technical"}

// TeamMember is a roster entry stored under team_members/member_<id>.
type TeamMember struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Bio         string `json:"bio"`
	Creds       string `json:"creds"`
	LinkedIn    string `json:"linkedin"`
	ImageURL    string `json:"image_url"`
	StoragePath string `json:"storagePath"`
}

// ContactInfo is the contact_info singleton.
type ContactInfo struct {
	AddressLine1 string `json:"addressLine1" validate:"max=200"`
	AddressLine2 string `json:"addressLine2" validate:"max=200"`
	AddressLine3 string `json:"addressLine3" validate:"max=200"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Phone        string `json:"phone" validate:"max=50"`
	WhatsApp     string `json:"whatsapp" validate:"max=50"`
}

// BusinessHours is the business_hours singleton.
type BusinessHours struct {
	Weekdays string `json:"weekdays" validate:"max=100"`
	Saturday string `json:"saturday" validate:"max=100"`
	Sunday   string `json:"sunday" validate:"max=100"`
}

// ContactView merges both singletons into one editable form.
type ContactView struct {
	ContactInfo
	BusinessHours
}

// SiteIdentity is the site_identity singleton holding the current logo.
type SiteIdentity struct {
	LogoURL     string `json:"logoUrl"`
	StoragePath string `json:"storagePath"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Admin is an account allowed to sign in to the dashboard.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
