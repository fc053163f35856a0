package domain

import (
	"encoding/json"
	"fmt"
)

// Gamepass is the marketplace item bought on the buyer's behalf. Price is the
// expected robux price and must match what the marketplace shows at purchase time.
type Gamepass struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	SellerID  string `json:"sellerId,omitempty"`
}

func (g *Gamepass) Valid() bool {
	return g != nil && g.ProductID != "" && g.Name != "" && g.Price > 0
}

// ServiceDetails is the per-service payload of a transaction. Each ServiceType
// has exactly one concrete variant.
type ServiceDetails interface {
	ServiceType() ServiceType
	GamepassPayload() *Gamepass
}

type RobuxDetails struct {
	Amount   int64     `json:"amount"`
	Gamepass *Gamepass `json:"gamepass,omitempty"`
}

func (RobuxDetails) ServiceType() ServiceType     { return ServiceRobux }
func (d RobuxDetails) GamepassPayload() *Gamepass { return d.Gamepass }

type GamepassDetails struct {
	Gamepass Gamepass `json:"gamepass"`
}

func (GamepassDetails) ServiceType() ServiceType { return ServiceGamepass }
func (d GamepassDetails) GamepassPayload() *Gamepass {
	gp := d.Gamepass
	return &gp
}

type JokiDetails struct {
	GameName string `json:"gameName"`
	Notes    string `json:"notes,omitempty"`
}

func (JokiDetails) ServiceType() ServiceType   { return ServiceJoki }
func (JokiDetails) GamepassPayload() *Gamepass { return nil }

type ResellerPackageDetails struct {
	PackageID      string `json:"packageId"`
	Tier           string `json:"tier"`
	DurationMonths int    `json:"durationMonths"`
}

func (ResellerPackageDetails) ServiceType() ServiceType   { return ServiceResellerPackage }
func (ResellerPackageDetails) GamepassPayload() *Gamepass { return nil }

func MarshalServiceDetails(d ServiceDetails) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

func UnmarshalServiceDetails(serviceType ServiceType, raw []byte) (ServiceDetails, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch serviceType {
	case ServiceRobux:
		var d RobuxDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("robux details: %w", err)
		}
		return d, nil
	case ServiceGamepass:
		var d GamepassDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("gamepass details: %w", err)
		}
		return d, nil
	case ServiceJoki:
		var d JokiDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("joki details: %w", err)
		}
		return d, nil
	case ServiceResellerPackage:
		var d ResellerPackageDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("reseller package details: %w", err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceType)
}
