package model

import (
	"encoding/json"
	"time"
)

type ServicePackage struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	ImageURL        string    `json:"image_url"`
	Features        []string  `json:"features"`
	Category        string    `json:"category"`
	IsFeatured      bool      `json:"is_featured"`
	DisplayOrder    int       `json:"display_order"`
	IsActive        bool      `json:"is_active"`
	BookingCount    int       `json:"booking_count"`
	TotalRevenue    float64   `json:"total_revenue"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
)

type PromoCode struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Description        string    `json:"description"`
	IsActive           bool      `json:"is_active"`
	ValidFrom          time.Time `json:"valid_from"`
	ValidUntil         time.Time `json:"valid_until"`
	UsageCount         int       `json:"usage_count"`
	UsageLimit         int       `json:"usage_limit"`
	DiscountType       string    `json:"discount_type"`
	DiscountValue      float64   `json:"discount_value"`
	MinOrderAmount     float64   `json:"min_order_amount"`
	MaxDiscountAmount  *float64  `json:"max_discount_amount,omitempty"`
	ApplicableServices []string  `json:"applicable_services,omitempty"`
}

type Testimonial struct {
	ID              string     `json:"id"`
	ClientName      string     `json:"client_name"`
	Rating          int        `json:"rating"`
	ReviewText      string     `json:"review_text"`
	ServiceReceived string     `json:"service_received"`
	AppointmentID   string     `json:"appointment_id,omitempty"`
	IsFeatured      bool       `json:"is_featured"`
	IsApproved      bool       `json:"is_approved"`
	DisplayOrder    int        `json:"display_order"`
	Source          string     `json:"source"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type ContentBlock struct {
	ID           string          `json:"id"`
	PageSlug     string          `json:"page_slug"`
	BlockType    string          `json:"block_type"`
	BlockName    string          `json:"block_name"`
	Content      json.RawMessage `json:"content"`
	DisplayOrder int             `json:"display_order"`
	IsActive     bool            `json:"is_active"`
	Responsive   json.RawMessage `json:"responsive,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type MediaItem struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	PublicURL        string    `json:"public_url"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	AltText          string    `json:"alt_text"`
	Caption          string    `json:"caption"`
	Tags             []string  `json:"tags"`
	UsageContext     string    `json:"usage_context"`
	UsageCount       int       `json:"usage_count"`
	UploadedBy       string    `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
}
