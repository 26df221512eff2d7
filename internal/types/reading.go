package types

// Reading is a single blood pressure measurement. Readings are immutable.
type Reading struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	UserName    string    `json:"user_name"`
	Systolic    int       `json:"systolic"`
	Diastolic   int       `json:"diastolic"`
	HeartRate   *int      `json:"heart_rate"`
	ReadingDate Timestamp `json:"reading_date"`
	CreatedAt   Timestamp `json:"created_at"`
}

// BPAverage is a rounded mean over a window of readings.
type BPAverage struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}
