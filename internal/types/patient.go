package types

import (
	"encoding/json"
	"fmt"
)

// Patient is an enrolled account as returned by the admin user endpoints.
// PHI fields are empty when the server could not decrypt them.
type Patient struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	DOB             string     `json:"dob"`
	Address         string     `json:"address"`
	UnionID         *int       `json:"union_id"`
	UnionName       string     `json:"union_name"`
	Status          UserStatus `json:"user_status"`
	IsFlagged       bool       `json:"is_flagged"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       Timestamp  `json:"created_at"`

	Gender            string   `json:"gender"`
	Race              string   `json:"race"`
	Ethnicity         string   `json:"ethnicity"`
	WorkStatus        string   `json:"work_status"`
	Rank              string   `json:"rank"`
	HeightInches      *int     `json:"height_inches"`
	WeightLbs         *int     `json:"weight_lbs"`
	ChronicConditions []string `json:"chronic_conditions"`
	HasHighBP         *bool    `json:"has_high_blood_pressure"`
	SmokingStatus     string   `json:"smoking_status"`
	OnBPMedication    *bool    `json:"on_bp_medication"`
	Medications       string   `json:"medications"`

	LastReadingDate Timestamp  `json:"last_reading_date"`
	ReadingCount    int        `json:"reading_count"`
	TotalReadings   int        `json:"total_readings"`
	LatestReading   *Reading   `json:"latest_reading"`
	Avg7Day         *BPAverage `json:"avg_7_day"`
	Avg30Day        *BPAverage `json:"avg_30_day"`
}

// UnmarshalJSON fills Status from the legacy is_active flag when user_status is absent.
func (p *Patient) UnmarshalJSON(data []byte) error {
	type plain Patient
	aux := struct {
		*plain
		IsActive *bool `json:"is_active"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Status == "" && aux.IsActive != nil {
		if *aux.IsActive {
			p.Status = StatusActive
		} else {
			p.Status = StatusDeactivated
		}
	}
	return nil
}

// DisplayName returns the patient name, or a stable placeholder.
func (p Patient) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("User #%d", p.ID)
}

// Union is an organization patients enroll through.
type Union struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// AdminNote is an append-only annotation on a patient.
type AdminNote struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	AdminName string    `json:"admin_name"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
}

// Stats is the dashboard counter block.
type Stats struct {
	TotalUsers       int `json:"total_users"`
	PendingApprovals int `json:"pending_approvals"`
	ApprovedUsers    int `json:"approved_users"`
	DeactivatedUsers int `json:"deactivated_users"`
	FlaggedUsers     int `json:"flagged_users_count"`
	TotalReadings    int `json:"total_readings"`
	ReadingsToday    int `json:"readings_today"`
}

// BulkFailure is one rejected id from a bulk operation.
type BulkFailure struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult partitions the ids of a bulk approve or deactivate.
type BulkResult struct {
	Success []int         `json:"success"`
	Skipped []BulkFailure `json:"skipped"`
	Error   []BulkFailure `json:"error"`
}

// UnmarshalJSON accepts success entries as bare ids or {id} objects.
func (b *BulkResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success []json.RawMessage `json:"success"`
		Skipped []BulkFailure     `json:"skipped"`
		Error   []BulkFailure     `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Skipped = raw.Skipped
	b.Error = raw.Error
	b.Success = b.Success[:0]
	for _, entry := range raw.Success {
		var id int
		if err := json.Unmarshal(entry, &id); err == nil {
			b.Success = append(b.Success, id)
			continue
		}
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil {
			return fmt.Errorf("bulk result entry: %w", err)
		}
		b.Success = append(b.Success, obj.ID)
	}
	return nil
}

// Summary renders the outcome counts the way the bulk toolbar reports them.
func (b BulkResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", len(b.Success), len(b.Skipped), len(b.Error))
}

// MFASetup is the provisioning material for a new authenticator.
type MFASetup struct {
	ProvisioningURI string   `json:"provisioning_uri"`
	Secret          string   `json:"secret"`
	BackupCodes     []string `json:"backup_codes"`
}
