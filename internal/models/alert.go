package models

import "time"

// AlertRecord is the durable history of an at-risk alert that was raised.
type AlertRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AlertID   string    `json:"alert_id" gorm:"not null;uniqueIndex;size:64"`
	StudentID string    `json:"student_id" gorm:"not null;index;size:64"`
	Category  string    `json:"category" gorm:"not null;size:32"`
	RiskLevel string    `json:"risk_level" gorm:"size:16"`
	RiskScore float64   `json:"risk_score"`
	Message   string    `json:"message" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AlertRecord) TableName() string {
	return "alert_records"
}
