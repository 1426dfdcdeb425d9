package models

import (
	"github.com/demodash/backend/internal/prediction"
	"github.com/demodash/backend/internal/query"
)

const (
	DefaultTableLimit = 100
	DefaultTopN       = 10
)

// CityQueryRequest binds both the GET query string and the POST body.
type CityQueryRequest struct {
	PopulationMin *int64   `json:"population_min" form:"population_min"`
	PopulationMax *int64   `json:"population_max" form:"population_max"`
	Capital       string   `json:"capital" form:"capital"`
	Countries     []string `json:"countries" form:"country"`
	BBox          string   `json:"bbox" form:"bbox"`
	Offset        int      `json:"offset" form:"offset" binding:"min=0"`
	Limit         int      `json:"limit" form:"limit" binding:"min=0,max=1000"`
	Top           int      `json:"top" form:"top" binding:"min=0,max=100"`
}

func (r CityQueryRequest) RawInputs() query.RawInputs {
	return query.RawInputs{
		PopulationMin: r.PopulationMin,
		PopulationMax: r.PopulationMax,
		Capital:       r.Capital,
		Countries:     r.Countries,
		BBox:          r.BBox,
	}
}

type CityQueryResponse struct {
	Spec             query.FilterSpec `json:"spec"`
	IgnoredCountries []string         `json:"ignored_countries"`
	Count            int              `json:"count"`
	TotalPopulation  int64            `json:"total_population"`
	Summary          query.Summary    `json:"summary"`
	Table            *query.TableData `json:"table"`
	Points           []query.MapPoint `json:"points"`
	Cached           bool             `json:"cached"`
	ResponseTime     int              `json:"response_time_ms"`
}

// DatasetSummary feeds the filter controls: slider bounds and the country list size.
type DatasetSummary struct {
	Source        string `json:"source"`
	Records       int    `json:"records"`
	Countries     int    `json:"countries"`
	Capitals      int    `json:"capitals"`
	PopulationMin int64  `json:"population_min"`
	PopulationMax int64  `json:"population_max"`
}

type CountriesResponse struct {
	Countries []string `json:"countries"`
	Total     int      `json:"total"`
}

// PredictionRequest mirrors the prediction form. Omitted fields take the form defaults.
type PredictionRequest struct {
	PassengerClass *int     `json:"pclass"`
	Sex            string   `json:"sex"`
	Age            *float64 `json:"age"`
	Fare           *float64 `json:"fare"`
}

// Features applies defaults and encodes sex. Range checks happen in the adapter.
func (r PredictionRequest) Features() (prediction.Features, error) {
	f := prediction.DefaultFeatures()
	if r.PassengerClass != nil {
		f.PassengerClass = *r.PassengerClass
	}
	if r.Sex != "" {
		sex, err := prediction.EncodeSex(r.Sex)
		if err != nil {
			return prediction.Features{}, err
		}
		f.Sex = sex
	}
	if r.Age != nil {
		f.Age = *r.Age
	}
	if r.Fare != nil {
		f.Fare = *r.Fare
	}
	return f, nil
}

type PredictionResponse struct {
	RequestID       string                  `json:"request_id"`
	Result          prediction.Result       `json:"result"`
	Verdict         string                  `json:"verdict"`
	SurvivalPercent string                  `json:"survival_percent"`
	DeathPercent    string                  `json:"death_percent"`
	Features        []prediction.FeatureRow `json:"features"`
	ResponseTime    int                     `json:"response_time_ms"`
}

type ModelInfoResponse struct {
	Model    prediction.Info         `json:"model"`
	Features []prediction.FeatureDoc `json:"features"`
	Defaults prediction.Features     `json:"defaults"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}
