package notification

import (
	"github.com/medbook/booking-api/internal/model"
)

// TemplateData carries the values available to template variable
// builders for one notification.
type TemplateData struct {
	DoctorName  string
	PatientName string
	Date        string
	Time        string
	Location    string
	Reason      string
	Website     string
}

// Profile is a doctor-class notification configuration: how template
// variables are assembled and how a reschedule treats the new slot.
// Doctors select a profile by name; nothing branches on doctor ids.
type Profile struct {
	Name string
	// BlockOnReschedule marks the new timeslot unavailable immediately
	// on reschedule instead of waiting for a confirm.
	BlockOnReschedule bool
	// BuildVars produces the positionally numbered template variables
	// for a notification kind.
	BuildVars func(kind model.NotificationKind, data TemplateData) map[int]string
}

var profiles = map[string]*Profile{
	"standard": {
		Name:              "standard",
		BlockOnReschedule: false,
		BuildVars:         standardVars,
	},
	"clinic_branded": {
		Name:              "clinic_branded",
		BlockOnReschedule: true,
		BuildVars:         brandedVars,
	},
}

// ProfileFor resolves a doctor's notification profile, falling back to
// standard for unknown names.
func ProfileFor(doctor *model.Doctor) *Profile {
	if p, ok := profiles[doctor.Profile]; ok {
		return p
	}
	return profiles["standard"]
}

func standardVars(kind model.NotificationKind, data TemplateData) map[int]string {
	switch kind {
	case model.KindDoctorNotify:
		return map[int]string{1: data.PatientName, 2: data.Date, 3: data.Time, 4: data.Reason}
	case model.KindFeedback:
		return map[int]string{1: data.PatientName, 2: data.DoctorName}
	case model.KindDeliveryAck:
		return map[int]string{1: data.PatientName}
	default:
		return map[int]string{1: data.PatientName, 2: data.Date, 3: data.Time}
	}
}

// brandedVars prepends the doctor identity and closes with the practice
// website, for tenants whose templates carry their own branding.
func brandedVars(kind model.NotificationKind, data TemplateData) map[int]string {
	switch kind {
	case model.KindDoctorNotify:
		return map[int]string{1: data.PatientName, 2: data.Date, 3: data.Time, 4: data.Location, 5: data.Reason}
	case model.KindFeedback:
		return map[int]string{1: data.PatientName, 2: data.DoctorName, 3: data.Website}
	case model.KindDeliveryAck:
		return map[int]string{1: data.PatientName}
	default:
		return map[int]string{1: data.DoctorName, 2: data.PatientName, 3: data.Date, 4: data.Time, 5: data.Website}
	}
}
