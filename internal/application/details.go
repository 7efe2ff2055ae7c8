package application

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	applicationerrors "hrm-server/internal/application/errors"
	"hrm-server/internal/shared/apperror"

	"github.com/shopspring/decimal"
)

// Detail is one variant of the per-type payload.
type Detail interface {
	Kind() Type
}

type LeaveDetails struct {
	LeaveType    string   `json:"leave_type" validate:"required,max=30"`
	HalfDay      bool     `json:"half_day"`
	HasDocuments bool     `json:"has_documents"`
	Attachments  []string `json:"attachments,omitempty" validate:"omitempty,max=10,dive,required,max=500"`
	ContactPhone string   `json:"contact_phone,omitempty" validate:"omitempty,e164"`
}

type AdjustmentDetails struct {
	LeaveType  string `json:"leave_type" validate:"required,max=30"`
	Mode       string `json:"mode" validate:"required,oneof=earn spend"`
	WorkedDate string `json:"worked_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type BusinessTripDetails struct {
	Destination   string          `json:"destination" validate:"required,max=200"`
	Purpose       string          `json:"purpose" validate:"required,max=1000"`
	TransportMode string          `json:"transport_mode" validate:"required,oneof=air rail road sea other"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Currency      string          `json:"currency" validate:"required,len=3,uppercase"`
}

type BusinessTripReportDetails struct {
	TripApplicationID string          `json:"trip_application_id" validate:"required,uuid"`
	Summary           string          `json:"summary" validate:"required,max=5000"`
	ActualCost        decimal.Decimal `json:"actual_cost"`
	Currency          string          `json:"currency" validate:"required,len=3,uppercase"`
}

type RefundDetails struct {
	Category string          `json:"category" validate:"required,oneof=travel meals equipment training other"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3,uppercase"`
	Receipts []string        `json:"receipts" validate:"required,min=1,max=20,dive,required,max=500"`
}

type ResignationDetails struct {
	LastWorkingDay string `json:"last_working_day" validate:"required,datetime=2006-01-02"`
	NoticeServed   bool   `json:"notice_served"`
	ExitInterview  bool   `json:"exit_interview"`
}

type HomeOfficeDetails struct {
	WorkLocation string `json:"work_location" validate:"required,max=200"`
	ContactPhone string `json:"contact_phone,omitempty" validate:"omitempty,e164"`
}

type DataUpdateDetails struct {
	Field    string `json:"field" validate:"required,oneof=name address phone bank_account emergency_contact marital_status"`
	NewValue string `json:"new_value" validate:"required,max=500"`
}

func (LeaveDetails) Kind() Type              { return TypeLeave }
func (AdjustmentDetails) Kind() Type         { return TypeAdjustment }
func (BusinessTripDetails) Kind() Type       { return TypeBusinessTrip }
func (BusinessTripReportDetails) Kind() Type { return TypeBusinessTripReport }
func (RefundDetails) Kind() Type             { return TypeRefund }
func (ResignationDetails) Kind() Type        { return TypeResignation }
func (HomeOfficeDetails) Kind() Type         { return TypeHomeOffice }
func (DataUpdateDetails) Kind() Type         { return TypeDataUpdate }

// Details is the tagged union carried by an application: exactly one field is
// set and it must match the application type.
type Details struct {
	Leave              *LeaveDetails              `json:"leave,omitempty"`
	Adjustment         *AdjustmentDetails         `json:"adjustment,omitempty"`
	BusinessTrip       *BusinessTripDetails       `json:"business_trip,omitempty"`
	BusinessTripReport *BusinessTripReportDetails `json:"business_trip_report,omitempty"`
	Refund             *RefundDetails             `json:"refund,omitempty"`
	Resignation        *ResignationDetails        `json:"resignation,omitempty"`
	HomeOffice         *HomeOfficeDetails         `json:"home_office,omitempty"`
	DataUpdate         *DataUpdateDetails         `json:"data_update,omitempty"`
}

func (d Details) variants() []Detail {
	var out []Detail
	if d.Leave != nil {
		out = append(out, d.Leave)
	}
	if d.Adjustment != nil {
		out = append(out, d.Adjustment)
	}
	if d.BusinessTrip != nil {
		out = append(out, d.BusinessTrip)
	}
	if d.BusinessTripReport != nil {
		out = append(out, d.BusinessTripReport)
	}
	if d.Refund != nil {
		out = append(out, d.Refund)
	}
	if d.Resignation != nil {
		out = append(out, d.Resignation)
	}
	if d.HomeOffice != nil {
		out = append(out, d.HomeOffice)
	}
	if d.DataUpdate != nil {
		out = append(out, d.DataUpdate)
	}
	return out
}

// Variant returns the populated block, or nil when none or several are set.
func (d Details) Variant() Detail {
	v := d.variants()
	if len(v) != 1 {
		return nil
	}
	return v[0]
}

// Validate checks that exactly the block for t is populated and that it
// passes its field rules.
func (d Details) Validate(t Type) error {
	variants := d.variants()
	switch {
	case len(variants) == 0:
		return applicationerrors.ErrDetailsMissing.WithDetails(map[string]string{"expected": string(t)})
	case len(variants) > 1:
		return applicationerrors.ErrDetailsAmbiguous
	case variants[0].Kind() != t:
		return applicationerrors.ErrDetailsMismatch.WithDetails(map[string]string{
			"expected": string(t),
			"got":      string(variants[0].Kind()),
		})
	}

	v := variants[0]
	if err := apperror.Validator().Struct(v); err != nil {
		return apperror.MapValidationError(err)
	}
	return validateAmounts(v)
}

// validateAmounts covers decimal fields, which struct tags cannot express.
func validateAmounts(v Detail) error {
	check := func(field string, amount decimal.Decimal) error {
		if amount.IsNegative() {
			return apperror.InvalidField(field)
		}
		return nil
	}
	switch d := v.(type) {
	case *BusinessTripDetails:
		return check("Estimated Cost", d.EstimatedCost)
	case *BusinessTripReportDetails:
		return check("Actual Cost", d.ActualCost)
	case *RefundDetails:
		if !d.Amount.IsPositive() {
			return apperror.InvalidField("Amount")
		}
	}
	return nil
}

func (d Details) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *Details) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Details{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("details: unsupported scan type %T", src)
}
