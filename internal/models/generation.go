package models

// ProviderAttempt records one provider leg of a generation run.
type ProviderAttempt struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

// GenerationRecordModel stores one persisted AI generation result.
type GenerationRecordModel struct {
	Base
	ProductID    *string           `json:"product_id" gorm:"index"`
	Kind         string            `json:"kind"       gorm:"index;not null"` // personas | titles | keywords | blog
	Keyword      string            `json:"keyword"`
	Title        string            `json:"title"`
	Content      string            `json:"content"    gorm:"type:longtext"`
	ProviderUsed string            `json:"provider_used"`
	ModelUsed    string            `json:"model_used"`
	FallbackUsed bool              `json:"fallback_used"`
	AttemptsMade int               `json:"attempts_made"`
	DurationMS   int64             `json:"duration_ms"`
	RawError     string            `json:"raw_error,omitempty"`
	Attempts     []ProviderAttempt `json:"attempts,omitempty" gorm:"type:longtext;serializer:json"`
}

func (GenerationRecordModel) TableName() string { return "generation_records" }
