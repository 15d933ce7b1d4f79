// Package usda looks up per-100g macro values in USDA FoodData Central.
package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"macrochef/internal/nutrition"
)

const (
	DefaultBaseURL = "https://api.nal.usda.gov/fdc/v1"
	pageSize       = 5
)

// ErrStatus is wrapped by errors for non-200 responses.
var ErrStatus = errors.New("unexpected status from FoodData Central")

// Nutrient numbers as used by FoodData Central.
const (
	numberProtein       = "203"
	numberFat           = "204"
	numberCarbs         = "205"
	numberEnergy        = "208"
	numberFiber         = "291"
	numberEnergyGeneral = "957"
	numberEnergyAtwater = "958"
)

// Client queries the FoodData Central REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a client. An empty baseURL uses the public API.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Food is a FoodData Central entry with its nutrients per 100 g.
type Food struct {
	FDCID       int
	Description string
	DataType    string
	Nutrients   []Nutrient
}

// Nutrient is one nutrient value of a food.
type Nutrient struct {
	Number string
	Name   string
	Unit   string
	Value  float64
}

type searchResponse struct {
	Foods []struct {
		FDCID         int    `json:"fdcId"`
		Description   string `json:"description"`
		DataType      string `json:"dataType"`
		FoodNutrients []struct {
			NutrientNumber string  `json:"nutrientNumber"`
			NutrientName   string  `json:"nutrientName"`
			UnitName       string  `json:"unitName"`
			Value          float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

type foodResponse struct {
	FDCID         int    `json:"fdcId"`
	Description   string `json:"description"`
	DataType      string `json:"dataType"`
	FoodNutrients []struct {
		Nutrient struct {
			Number   string `json:"number"`
			Name     string `json:"name"`
			UnitName string `json:"unitName"`
		} `json:"nutrient"`
		Amount *float64 `json:"amount"`
	} `json:"foodNutrients"`
}

// Search returns the first page of foods matching query, in API rank order.
func (c *Client) Search(ctx context.Context, query string) ([]Food, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("api_key", c.apiKey)

	var resp searchResponse
	if err := c.get(ctx, "/foods/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	foods := make([]Food, 0, len(resp.Foods))
	for _, f := range resp.Foods {
		food := Food{FDCID: f.FDCID, Description: f.Description, DataType: f.DataType}
		for _, n := range f.FoodNutrients {
			food.Nutrients = append(food.Nutrients, Nutrient{
				Number: n.NutrientNumber,
				Name:   n.NutrientName,
				Unit:   n.UnitName,
				Value:  n.Value,
			})
		}
		foods = append(foods, food)
	}
	return foods, nil
}

// Food fetches the full record of a single food.
func (c *Client) Food(ctx context.Context, fdcID int) (*Food, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)

	var resp foodResponse
	if err := c.get(ctx, fmt.Sprintf("/food/%d?%s", fdcID, params.Encode()), &resp); err != nil {
		return nil, fmt.Errorf("food %d: %w", fdcID, err)
	}

	food := &Food{FDCID: resp.FDCID, Description: resp.Description, DataType: resp.DataType}
	for _, n := range resp.FoodNutrients {
		if n.Amount == nil {
			continue
		}
		food.Nutrients = append(food.Nutrients, Nutrient{
			Number: n.Nutrient.Number,
			Name:   n.Nutrient.Name,
			Unit:   n.Nutrient.UnitName,
			Value:  *n.Amount,
		})
	}
	return food, nil
}

// Per100g finds the best match for name and returns its macros per 100 g.
// found is false when the search yields nothing usable.
func (c *Client) Per100g(ctx context.Context, name string) (nutrition.Macros, bool, error) {
	foods, err := c.Search(ctx, name)
	if err != nil {
		return nutrition.Macros{}, false, err
	}
	best, ok := BestMatch(name, foods)
	if !ok {
		return nutrition.Macros{}, false, nil
	}

	m, ok := macros(best.Nutrients)
	if !ok {
		detail, err := c.Food(ctx, best.FDCID)
		if err != nil {
			return nutrition.Macros{}, false, err
		}
		m, ok = macros(detail.Nutrients)
	}
	return m, ok, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// macros extracts the macro vector. ok is false when none of protein, carbs,
// fat or energy is present.
func macros(nutrients []Nutrient) (nutrition.Macros, bool) {
	var m nutrition.Macros
	var found, haveEnergy bool
	var fallbackEnergy float64
	var haveFallback bool

	for _, n := range nutrients {
		switch n.Number {
		case numberProtein:
			m.Protein, found = n.Value, true
		case numberCarbs:
			m.Carbs, found = n.Value, true
		case numberFat:
			m.Fat, found = n.Value, true
		case numberFiber:
			m.Fiber = n.Value
		case numberEnergy:
			if strings.EqualFold(n.Unit, "kcal") {
				m.Calories, haveEnergy, found = n.Value, true, true
			}
		case numberEnergyAtwater, numberEnergyGeneral:
			if strings.EqualFold(n.Unit, "kcal") && !haveFallback {
				fallbackEnergy, haveFallback = n.Value, true
			}
		}
	}
	if !haveEnergy && haveFallback {
		m.Calories, found = fallbackEnergy, true
	}
	return m, found
}
