// Package analytics reduces a window of appointments to the dashboard metrics.
package analytics

import (
	"math"

	"github.com/lashstudio/studio-backend/libs/model"
)

type ServiceStat struct {
	ServiceID   string  `json:"service_id"`
	ServiceName string  `json:"service_name"`
	Bookings    int     `json:"bookings"`
	Revenue     float64 `json:"revenue"`
}

type MethodStat struct {
	Method  string  `json:"method"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type Summary struct {
	TotalAppointments     int           `json:"total_appointments"`
	CompletedAppointments int           `json:"completed_appointments"`
	CancelledAppointments int           `json:"cancelled_appointments"`
	TotalRevenue          float64       `json:"total_revenue"`
	AverageBookingValue   float64       `json:"average_booking_value"`
	CompletionRate        float64       `json:"completion_rate"`
	CancellationRate      float64       `json:"cancellation_rate"`
	NoShowRate            float64       `json:"no_show_rate"`
	ServiceBreakdown      []ServiceStat `json:"service_breakdown"`
	PaymentMethods        []MethodStat  `json:"payment_methods"`
}

// Summarize counts revenue only from paid appointments. Rates are percentages
// rounded to two decimals; breakdowns keep first-seen order.
func Summarize(appts []model.Appointment) Summary {
	s := Summary{
		TotalAppointments: len(appts),
		ServiceBreakdown:  []ServiceStat{},
		PaymentMethods:    []MethodStat{},
	}
	services := map[string]int{}
	methods := map[string]int{}
	paid := 0

	for _, a := range appts {
		switch a.Status {
		case model.AppointmentCompleted:
			s.CompletedAppointments++
		case model.AppointmentCancelled:
			s.CancelledAppointments++
		}

		idx, ok := services[a.Service.ID]
		if !ok {
			idx = len(s.ServiceBreakdown)
			services[a.Service.ID] = idx
			s.ServiceBreakdown = append(s.ServiceBreakdown, ServiceStat{ServiceID: a.Service.ID, ServiceName: a.Service.Name})
		}
		s.ServiceBreakdown[idx].Bookings++

		if a.Payment.Status != model.PaymentPaid {
			continue
		}
		amount := a.Payment.AmountDue()
		paid++
		s.TotalRevenue += amount
		s.ServiceBreakdown[idx].Revenue += amount

		method := a.Payment.Method
		if method == "" {
			method = "unknown"
		}
		mi, ok := methods[method]
		if !ok {
			mi = len(s.PaymentMethods)
			methods[method] = mi
			s.PaymentMethods = append(s.PaymentMethods, MethodStat{Method: method})
		}
		s.PaymentMethods[mi].Count++
		s.PaymentMethods[mi].Revenue += amount
	}

	if paid > 0 {
		s.AverageBookingValue = round2(s.TotalRevenue / float64(paid))
	}
	if s.TotalAppointments > 0 {
		s.CompletionRate = round2(float64(s.CompletedAppointments) / float64(s.TotalAppointments) * 100)
		s.CancellationRate = round2(float64(s.CancelledAppointments) / float64(s.TotalAppointments) * 100)
	}
	s.TotalRevenue = round2(s.TotalRevenue)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
