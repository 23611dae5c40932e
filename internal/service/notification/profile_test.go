package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medbook/booking-api/internal/model"
)

func TestProfileForFallsBackToStandard(t *testing.T) {
	assert.Equal(t, "standard", ProfileFor(&model.Doctor{Profile: ""}).Name)
	assert.Equal(t, "standard", ProfileFor(&model.Doctor{Profile: "no-such-profile"}).Name)
	assert.Equal(t, "clinic_branded", ProfileFor(&model.Doctor{Profile: "clinic_branded"}).Name)
}

func TestProfileBlockOnReschedule(t *testing.T) {
	assert.False(t, ProfileFor(&model.Doctor{Profile: "standard"}).BlockOnReschedule)
	assert.True(t, ProfileFor(&model.Doctor{Profile: "clinic_branded"}).BlockOnReschedule)
}

func TestStandardVars(t *testing.T) {
	data := TemplateData{
		DoctorName:  "Dr. Rao",
		PatientName: "Asha",
		Date:        "2026-09-15",
		Time:        "10:30",
		Reason:      "checkup",
	}

	vars := standardVars(model.KindPatientConfirm, data)
	assert.Equal(t, map[int]string{1: "Asha", 2: "2026-09-15", 3: "10:30"}, vars)

	vars = standardVars(model.KindDoctorNotify, data)
	assert.Equal(t, map[int]string{1: "Asha", 2: "2026-09-15", 3: "10:30", 4: "checkup"}, vars)

	vars = standardVars(model.KindFeedback, data)
	assert.Equal(t, map[int]string{1: "Asha", 2: "Dr. Rao"}, vars)
}

func TestBrandedVars(t *testing.T) {
	data := TemplateData{
		DoctorName:  "Dr. Rao",
		PatientName: "Asha",
		Date:        "2026-09-15",
		Time:        "10:30",
		Location:    "Room 4",
		Reason:      "checkup",
		Website:     "https://example.clinic",
	}

	vars := brandedVars(model.KindPatientConfirm, data)
	assert.Equal(t, map[int]string{
		1: "Dr. Rao", 2: "Asha", 3: "2026-09-15", 4: "10:30", 5: "https://example.clinic",
	}, vars)

	vars = brandedVars(model.KindFeedback, data)
	assert.Equal(t, map[int]string{1: "Asha", 2: "Dr. Rao", 3: "https://example.clinic"}, vars)
}

func TestDeliveryAckVarsIdenticalAcrossProfiles(t *testing.T) {
	data := TemplateData{PatientName: "Asha"}
	assert.Equal(t, standardVars(model.KindDeliveryAck, data), brandedVars(model.KindDeliveryAck, data))
}
