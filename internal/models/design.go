package models

import "time"

// Design is a locally owned catalog entry identified by its design number.
// IsActive is controlled by admins only; synchronization never writes it.
type Design struct {
	ID            int       `db:"id" json:"id"`
	DesignNo      string    `db:"design_no" json:"designNo"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	Category      string    `db:"category" json:"category"`
	Subcategory   string    `db:"subcategory" json:"subcategory"`
	Collection    string    `db:"collection" json:"collection"`
	Gender        string    `db:"gender" json:"gender"`
	ProductType   string    `db:"product_type" json:"productType"`
	Description   string    `db:"description" json:"description"`
	ImageBasePath string    `db:"image_base_path" json:"imageBasePath"`
	LastSyncedAt  time.Time `db:"last_synced_at" json:"lastSyncedAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// DesignFields is the metadata synchronization may overwrite on a Design.
type DesignFields struct {
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory"`
	Collection    string `json:"collection"`
	Gender        string `json:"gender"`
	ProductType   string `json:"productType"`
	Description   string `json:"description"`
	ImageBasePath string `json:"imageBasePath"`
}

// Fields returns the synchronizable metadata of the design.
func (d *Design) Fields() DesignFields {
	return DesignFields{
		Category:      d.Category,
		Subcategory:   d.Subcategory,
		Collection:    d.Collection,
		Gender:        d.Gender,
		ProductType:   d.ProductType,
		Description:   d.Description,
		ImageBasePath: d.ImageBasePath,
	}
}

// UpsertResult reports what a registry upsert did to a design row.
type UpsertResult string

const (
	UpsertCreated UpsertResult = "created"
	UpsertUpdated UpsertResult = "updated"
	UpsertSkipped UpsertResult = "skipped"
)

// DesignFilter holds filters for admin design listings.
type DesignFilter struct {
	Search   string
	Category string
	IsActive *bool
	Page     int
	Limit    int
}

// SyncStats aggregates the outcome of a design synchronization run.
type SyncStats struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Changed reports whether the run wrote anything to the registry.
func (s SyncStats) Changed() bool {
	return s.Created+s.Updated > 0
}
