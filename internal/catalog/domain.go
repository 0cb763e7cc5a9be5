package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/krishilink/krishilink/internal/members"
	"github.com/krishilink/krishilink/internal/shared"
)

// Product carries one price column per reseller tier. Admin has no tier:
// they are the stock origin and pay nothing.
type Product struct {
	ID                  uuid.UUID
	Name                string
	FranchisePrice      float64
	DistributorPrice    float64
	SubDistributorPrice float64
	DealerPrice         float64
	FarmerPrice         float64
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = fmt.Errorf("%w: product", shared.ErrNotFound)
	// ErrProductInactive indicates the product is archived and cannot be purchased.
	ErrProductInactive = fmt.Errorf("%w: product is inactive", shared.ErrValidation)
	// ErrNoPriceTier indicates a role without a defined price column. This is
	// a hard integrity error, never a silent zero.
	ErrNoPriceTier = fmt.Errorf("%w: no price tier for role", shared.ErrIntegrity)
)

// PriceFor resolves the unit price a member of the given role pays for the
// product. The switch is exhaustive over the defined roles so a new tier is
// a compile-visible change, not a runtime string comparison.
func PriceFor(p Product, role members.Role) (float64, error) {
	switch role {
	case members.RoleFranchise:
		return p.FranchisePrice, nil
	case members.RoleDistributor:
		return p.DistributorPrice, nil
	case members.RoleSubDistributor:
		return p.SubDistributorPrice, nil
	case members.RoleDealer:
		return p.DealerPrice, nil
	case members.RoleFarmer:
		return p.FarmerPrice, nil
	case members.RoleAdmin:
		return 0, fmt.Errorf("%w %s", ErrNoPriceTier, role)
	default:
		return 0, fmt.Errorf("%w %s", ErrNoPriceTier, role)
	}
}

// CostFor resolves the unit acquisition cost of a member of the given role:
// the price they themselves paid for the unit. The Admin is the stock origin
// and has zero cost.
func CostFor(p Product, role members.Role) (float64, error) {
	if role == members.RoleAdmin {
		return 0, nil
	}
	return PriceFor(p, role)
}

// CreateInput describes a new product.
type CreateInput struct {
	Name                string
	FranchisePrice      float64
	DistributorPrice    float64
	SubDistributorPrice float64
	DealerPrice         float64
	FarmerPrice         float64
	InitialStock        int64
}

// UpdateInput edits name, prices and resets the Admin's stock level.
type UpdateInput struct {
	Name                string
	FranchisePrice      float64
	DistributorPrice    float64
	SubDistributorPrice float64
	DealerPrice         float64
	FarmerPrice         float64
	Stock               int64
}

// Listing is a product joined with the Admin's current stock, as shown in
// purchase forms.
type Listing struct {
	Product
	AdminStock int64
}

func (in CreateInput) prices() []float64 {
	return []float64{in.FranchisePrice, in.DistributorPrice, in.SubDistributorPrice, in.DealerPrice, in.FarmerPrice}
}

func (in UpdateInput) prices() []float64 {
	return []float64{in.FranchisePrice, in.DistributorPrice, in.SubDistributorPrice, in.DealerPrice, in.FarmerPrice}
}
