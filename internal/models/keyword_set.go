package models

// Keyword is one scored keyword inside a discovery set.
type Keyword struct {
	Text             string  `json:"text"`
	SearchVolume     int     `json:"search_volume"`
	Competition      float64 `json:"competition"`
	CompetitionLevel string  `json:"competition_level"` // low | medium | high
	CPC              float64 `json:"cpc"`
	Difficulty       int     `json:"difficulty"`
	Intent           string  `json:"intent"` // commercial | informational | navigational
	VolumeEstimated  bool    `json:"volume_estimated,omitempty"`
	Source           string  `json:"source"` // seed | modifier | broad-category | suggestion-api
	Selected         bool    `json:"selected"`
}

// KeywordSetModel stores the outcome of one keyword discovery run.
type KeywordSetModel struct {
	Base
	ProductID      *string     `json:"product_id" gorm:"index"`
	SeedSource     string      `json:"seed_source"`
	LanguageCode   string      `json:"language_code"`
	LocationCode   int         `json:"location_code"`
	Phases         StringArray `json:"phases"   gorm:"type:longtext"`
	Keywords       []Keyword   `json:"keywords" gorm:"type:longtext;serializer:json"`
	CandidateCount int         `json:"candidate_count"`
	ResultCount    int         `json:"result_count"`
}

func (KeywordSetModel) TableName() string { return "keyword_sets" }
