package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ProviderKind is the kind of business a booking is made with.
type ProviderKind string

const (
	ProviderPethouse ProviderKind = "pethouse"
	ProviderClinic   ProviderKind = "clinic"
)

func (k ProviderKind) Valid() bool {
	return k == ProviderPethouse || k == ProviderClinic
}

// Mode is how a clinic consultation takes place.
type Mode string

const (
	ModeInPerson  Mode = "inperson"
	ModeVideoCall Mode = "videocall"
)

type PaymentMethod string

const (
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// ServiceType is one line of a pethouse booking, priced at booking time.
type ServiceType struct {
	Name    string  `json:"name" bson:"name"`
	PetType string  `json:"petType,omitempty" bson:"pet_type,omitempty"`
	Price   float64 `json:"price,omitempty" bson:"price,omitempty"`
}

type Payment struct {
	Amount float64       `json:"amount" bson:"amount"`
	Method PaymentMethod `json:"method" bson:"method"`
	Status PaymentStatus `json:"status" bson:"status"`
}

// Booking is a pethouse stay or a clinic consultation.
// Its id also keys the chat ticket and call rooms opened for it.
type Booking struct {
	ID           string        `json:"id" bson:"_id"`
	UserID       string        `json:"userId" bson:"user_id"`
	ProviderID   string        `json:"providerId" bson:"provider_id"`
	ProviderKind ProviderKind  `json:"providerKind" bson:"provider_kind"`
	PetID        string        `json:"petId" bson:"pet_id"`
	ServiceTypes []ServiceType `json:"serviceType,omitempty" bson:"service_types,omitempty"`
	StartDate    time.Time     `json:"startDate" bson:"start_date"`
	EndDate      time.Time     `json:"endDate" bson:"end_date"`
	Mode         Mode          `json:"mode,omitempty" bson:"mode,omitempty"`
	Notes        string        `json:"notes,omitempty" bson:"notes,omitempty"`
	Payment      Payment       `json:"payment" bson:"payment"`
	Status       Status        `json:"status" bson:"status"`
	CreatedAt    time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updated_at"`
}

// ErrInvalidBooking is returned for create requests that fail validation.
var ErrInvalidBooking = errors.New("invalid booking")

// CreateRequest is the body of a booking create call. The owning user
// comes from the caller's identity, never from the body.
type CreateRequest struct {
	ProviderID   string        `json:"providerId"`
	ProviderKind ProviderKind  `json:"providerKind"`
	PetID        string        `json:"petId"`
	ServiceTypes []ServiceType `json:"serviceType"`
	StartDate    time.Time     `json:"startDate"`
	EndDate      time.Time     `json:"endDate"`
	Mode         Mode          `json:"mode"`
	Notes        string        `json:"notes"`
	Payment      struct {
		Amount float64       `json:"amount"`
		Method PaymentMethod `json:"method"`
	} `json:"payment"`
}

// Validate normalises r and checks it.
func (r *CreateRequest) Validate() error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.PetID = strings.TrimSpace(r.PetID)

	switch {
	case !r.ProviderKind.Valid():
		return fmt.Errorf("%w: providerKind must be pethouse or clinic", ErrInvalidBooking)
	case r.ProviderID == "":
		return fmt.Errorf("%w: providerId is required", ErrInvalidBooking)
	case r.PetID == "":
		return fmt.Errorf("%w: petId is required", ErrInvalidBooking)
	case r.StartDate.IsZero():
		return fmt.Errorf("%w: startDate is required", ErrInvalidBooking)
	case r.Payment.Amount < 0:
		return fmt.Errorf("%w: payment amount must not be negative", ErrInvalidBooking)
	}

	switch r.Payment.Method {
	case PaymentUPI, PaymentCard, PaymentCash:
	default:
		return fmt.Errorf("%w: payment method must be upi, card or cash", ErrInvalidBooking)
	}

	if r.ProviderKind == ProviderClinic {
		// consultation ใช้ appointment date เดียว
		if r.Mode != ModeInPerson && r.Mode != ModeVideoCall {
			return fmt.Errorf("%w: mode must be inperson or videocall", ErrInvalidBooking)
		}
		if r.EndDate.IsZero() {
			r.EndDate = r.StartDate
		}
	} else {
		if r.Mode != "" {
			return fmt.Errorf("%w: mode applies to clinic consultations only", ErrInvalidBooking)
		}
		if len(r.ServiceTypes) == 0 {
			return fmt.Errorf("%w: at least one serviceType is required", ErrInvalidBooking)
		}
		for _, st := range r.ServiceTypes {
			if strings.TrimSpace(st.Name) == "" {
				return fmt.Errorf("%w: serviceType name is required", ErrInvalidBooking)
			}
		}
		if r.EndDate.IsZero() {
			return fmt.Errorf("%w: endDate is required", ErrInvalidBooking)
		}
	}

	if r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidBooking)
	}
	return nil
}
