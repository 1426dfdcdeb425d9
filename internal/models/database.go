package models

// GORM models

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	quoted := make([]string, len(s))
	for i, v := range s {
		quoted[i] = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
	}
	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		parts := strings.Split(v, ",")
		for i, p := range parts {
			parts[i] = strings.Trim(p, `"`)
		}
		*s = StringArray(parts)
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// City is a persisted dataset row; the server can load its store from this table.
type City struct {
	BaseModel
	Name       string  `json:"name" gorm:"not null"`
	Country    string  `json:"country" gorm:"not null;index"`
	IsCapital  bool    `json:"is_capital" gorm:"default:false"`
	Population int64   `json:"population" gorm:"not null;check:population >= 0"`
	Latitude   float64 `json:"latitude" gorm:"not null"`
	Longitude  float64 `json:"longitude" gorm:"not null"`
	Source     string  `json:"source" gorm:"index"`
}

// QueryLog records one executed city query
type QueryLog struct {
	BaseModel
	RequestID        string      `json:"request_id" gorm:"uniqueIndex;not null"`
	SpecKey          string      `json:"spec_key" gorm:"not null"`
	PopulationMin    int64       `json:"population_min"`
	PopulationMax    int64       `json:"population_max"`
	CapitalFilter    string      `json:"capital_filter"`
	Countries        StringArray `json:"countries" gorm:"type:text[]"`
	IgnoredCountries StringArray `json:"ignored_countries" gorm:"type:text[]"`
	ResultCount      int         `json:"result_count" gorm:"default:0"`
	TotalPopulation  int64       `json:"total_population" gorm:"default:0"`
	CacheHit         bool        `json:"cache_hit"`
	ResponseTimeMs   int         `json:"response_time_ms"`
	UserSession      string      `json:"user_session"`
	UserAgent        string      `json:"user_agent"`
	IPAddress        string      `json:"ip_address"`
}

// PredictionLog records one survival prediction request
type PredictionLog struct {
	BaseModel
	RequestID           string  `json:"request_id" gorm:"uniqueIndex;not null"`
	PassengerClass      int     `json:"pclass"`
	Sex                 int     `json:"sex"`
	Age                 float64 `json:"age"`
	Fare                float64 `json:"fare"`
	SurvivalProbability float64 `json:"survival_probability"`
	ModelFormat         string  `json:"model_format"`
	ModelVersion        string  `json:"model_version"`
	Success             bool    `json:"success"`
	ErrorMessage        string  `json:"error_message"`
	ResponseTimeMs      int     `json:"response_time_ms"`
	UserSession         string  `json:"user_session"`
}

// FilterUsage aggregates how often each distinct filter is used
type FilterUsage struct {
	BaseModel
	SpecKey           string    `json:"spec_key" gorm:"unique;not null"`
	UseCount          int       `json:"use_count" gorm:"default:1"`
	AvgResultCount    float64   `json:"avg_result_count" gorm:"type:decimal(12,2);default:0"`
	AvgResponseTimeMs int       `json:"avg_response_time_ms" gorm:"default:0"`
	LastUsed          time.Time `json:"last_used" gorm:"default:NOW()"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// PredictionStats summarises the prediction log
type PredictionStats struct {
	Total              int64   `json:"total"`
	Failed             int64   `json:"failed"`
	AvgSurvival        float64 `json:"avg_survival_probability"`
	PredictedSurvivors int64   `json:"predicted_survivors"`
	AvgResponseTimeMs  float64 `json:"avg_response_time_ms"`
}

// Database interfaces for repository pattern
type CityRepository interface {
	Count(ctx context.Context) (int64, error)
	FindAll(ctx context.Context) ([]City, error)
	// ReplaceAll replaces every stored city with cities from source in a single transaction.
	ReplaceAll(ctx context.Context, source string, cities []City) error
}

type QueryLogRepository interface {
	Create(ctx context.Context, log *QueryLog) error
	GetRecent(ctx context.Context, limit int) ([]QueryLog, error)
}

type PredictionLogRepository interface {
	Create(ctx context.Context, log *PredictionLog) error
	GetRecent(ctx context.Context, limit int) ([]PredictionLog, error)
	GetStats(ctx context.Context, since time.Time) (*PredictionStats, error)
}

type FilterUsageRepository interface {
	IncrementCount(ctx context.Context, specKey string) error
	UpdateStats(ctx context.Context, specKey string, resultCount float64, responseTime int) error
	GetTop(ctx context.Context, limit int) ([]FilterUsage, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetAllServicesHealth() ([]SystemHealth, error)
	GetUnhealthyServices() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (City) TableName() string          { return "cities" }
func (QueryLog) TableName() string      { return "query_logs" }
func (PredictionLog) TableName() string { return "prediction_logs" }
func (FilterUsage) TableName() string   { return "filter_usage" }
func (SystemHealth) TableName() string  { return "system_health" }

// Model validation methods
func (c *City) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("city name is required")
	}
	if strings.TrimSpace(c.Country) == "" {
		return fmt.Errorf("country is required")
	}
	if c.Population < 0 {
		return fmt.Errorf("population cannot be negative")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %v", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %v", c.Longitude)
	}
	return nil
}

func (q *QueryLog) Validate() error {
	if q.RequestID == "" {
		return fmt.Errorf("request ID is required")
	}
	if q.ResponseTimeMs < 0 {
		return fmt.Errorf("response time cannot be negative")
	}
	return nil
}

func (p *PredictionLog) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request ID is required")
	}
	if p.Success && (p.SurvivalProbability < 0 || p.SurvivalProbability > 1) {
		return fmt.Errorf("invalid survival probability: %v", p.SurvivalProbability)
	}
	return nil
}

// GORM hooks
func (c *City) BeforeCreate(tx *gorm.DB) error {
	return c.Validate()
}

func (q *QueryLog) BeforeCreate(tx *gorm.DB) error {
	return q.Validate()
}

func (p *PredictionLog) BeforeCreate(tx *gorm.DB) error {
	return p.Validate()
}
