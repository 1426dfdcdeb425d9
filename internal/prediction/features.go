package prediction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeatureNames is the column order the classifier was trained on.
var FeatureNames = []string{"pclass", "sex", "age", "fare"}

const (
	SexFemale = 0
	SexMale   = 1

	MaxAge  = 120.0
	MaxFare = 10000.0
)

// Features is one passenger, already encoded for the classifier.
type Features struct {
	PassengerClass int     `json:"pclass"`
	Sex            int     `json:"sex"`
	Age            float64 `json:"age"`
	Fare           float64 `json:"fare"`
}

// DefaultFeatures mirrors the initial state of the prediction form.
func DefaultFeatures() Features {
	return Features{PassengerClass: 3, Sex: SexFemale, Age: 30, Fare: 32}
}

// Vector returns [pclass, sex, age, fare].
func (f Features) Vector() []float64 {
	return []float64{float64(f.PassengerClass), float64(f.Sex), f.Age, f.Fare}
}

func (f Features) Validate() error {
	if f.PassengerClass < 1 || f.PassengerClass > 3 {
		return invalidInput("pclass must be 1, 2 or 3, got %d", f.PassengerClass)
	}
	if f.Sex != SexFemale && f.Sex != SexMale {
		return invalidInput("sex must be 0 (female) or 1 (male), got %d", f.Sex)
	}
	if math.IsNaN(f.Age) || math.IsInf(f.Age, 0) || f.Age < 0 || f.Age > MaxAge {
		return invalidInput("age must be between 0 and %v, got %v", MaxAge, f.Age)
	}
	if math.IsNaN(f.Fare) || math.IsInf(f.Fare, 0) || f.Fare < 0 || f.Fare > MaxFare {
		return invalidInput("fare must be between 0 and %v, got %v", MaxFare, f.Fare)
	}
	return nil
}

// EncodeSex maps the form's sex option onto the classifier encoding.
func EncodeSex(raw string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "female", "f", "0":
		return SexFemale, nil
	case "male", "m", "1":
		return SexMale, nil
	default:
		return 0, invalidInput("sex must be female or male, got %q", raw)
	}
}

// FeatureRow is one line of the encoded-input table shown to the user.
type FeatureRow struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FeatureDoc explains a feature to the user.
type FeatureDoc struct {
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Default     float64 `json:"default"`
}

func DescribeFeatures(f Features) []FeatureRow {
	return []FeatureRow{
		{Name: "pclass", Label: "Passenger Class", Value: strconv.Itoa(f.PassengerClass)},
		{Name: "sex", Label: "Sex (0=female, 1=male)", Value: strconv.Itoa(f.Sex)},
		{Name: "age", Label: "Age", Value: strconv.FormatFloat(f.Age, 'f', -1, 64)},
		{Name: "fare", Label: "Fare", Value: strconv.FormatFloat(f.Fare, 'f', -1, 64)},
	}
}

func FeatureDocs() []FeatureDoc {
	d := DefaultFeatures()
	return []FeatureDoc{
		{Name: "pclass", Label: "Passenger Class", Description: "Ship class (1st = upper, 2nd = middle, 3rd = lower class)", Min: 1, Max: 3, Default: float64(d.PassengerClass)},
		{Name: "sex", Label: "Sex", Description: "Gender of the passenger (historically, women and children were prioritized)", Min: SexFemale, Max: SexMale, Default: float64(d.Sex)},
		{Name: "age", Label: "Age", Description: "Age in years (children had higher survival rates)", Min: 0, Max: MaxAge, Default: d.Age},
		{Name: "fare", Label: "Fare", Description: "Ticket price in pounds (higher fares often meant better cabin locations and access to lifeboats)", Min: 0, Max: MaxFare, Default: d.Fare},
	}
}

// FormatPercent renders a probability as "63.52%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
