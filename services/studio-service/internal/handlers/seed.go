package handlers

import (
	"time"

	"github.com/lashstudio/studio-backend/libs/model"
)

func defaultSiteSettings(now time.Time) model.SiteSettings {
	day := func(opens, closes string, closed bool) map[string]any {
		return map[string]any{"open": opens, "close": closes, "closed": closed}
	}
	return model.SiteSettings{
		"brand": map[string]any{
			"name":         "Lash Studio",
			"tagline":      "Beautiful Lashes, Beautiful You",
			"company_name": "Professional Lash Studio LLC",
			"description":  "Premium eyelash extension services with certified technicians",
		},
		"hero": map[string]any{
			"title":         "Transform Your Look",
			"subtitle":      "Professional Eyelash Extensions",
			"description":   "Enhance your natural beauty with our premium lash extension services",
			"cta_primary":   "Book Now",
			"cta_secondary": "Learn More",
		},
		"contact": map[string]any{
			"phone": "+1 (555) 123-4567",
			"email": "hello@lashstudio.com",
			"business_hours": map[string]any{
				"monday":    day("09:00", "18:00", false),
				"tuesday":   day("09:00", "18:00", false),
				"wednesday": day("09:00", "18:00", false),
				"thursday":  day("09:00", "18:00", false),
				"friday":    day("09:00", "18:00", false),
				"saturday":  day("10:00", "16:00", false),
				"sunday":    day("10:00", "16:00", true),
			},
		},
		"theme": map[string]any{
			"primary_color":   "#8B4513",
			"secondary_color": "#F5DEB3",
			"accent_color":    "#D2691E",
		},
		"updated_at": now,
	}
}

func defaultServices() []model.ServicePackage {
	return []model.ServicePackage{
		{
			Name:            "Classic Lashes",
			Description:     "Natural-looking individual lash extensions",
			Price:           120,
			DurationMinutes: 120,
			Category:        "classic",
			Features:        []string{"1:1 ratio", "Natural look", "Lasting 4-6 weeks"},
			IsFeatured:      true,
			DisplayOrder:    1,
			IsActive:        true,
		},
		{
			Name:            "Volume Lashes",
			Description:     "Fuller, more dramatic lash extensions",
			Price:           180,
			DurationMinutes: 150,
			Category:        "volume",
			Features:        []string{"2D-5D fans", "Dramatic look", "Lasting 4-6 weeks"},
			IsFeatured:      true,
			DisplayOrder:    2,
			IsActive:        true,
		},
	}
}
