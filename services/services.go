package services

import (
	"context"

	securebridge "github.com/opengovern/secure-bridge"
)

const FinancialSummaryEndpoint = "/reports/financial-summary"

// Services groups every dashboard collection behind one bridge.
type Services struct {
	Branches     *Resource[Branch]
	Staff        *Resource[StaffMember]
	Payroll      *Resource[PayrollRun]
	Invoices     *Resource[Invoice]
	Inventory    *Resource[InventoryItem]
	Patients     *Resource[Patient]
	Appointments *Resource[Appointment]
	Claims       *Resource[Claim]
	Expenses     *Resource[Expense]

	bridge *securebridge.SecureBridge
}

func New(bridge *securebridge.SecureBridge) *Services {
	return &Services{
		Branches:     NewResource[Branch](bridge, "branches"),
		Staff:        NewResource[StaffMember](bridge, "staff"),
		Payroll:      NewResource[PayrollRun](bridge, "payroll"),
		Invoices:     NewResource[Invoice](bridge, "invoices"),
		Inventory:    NewResource[InventoryItem](bridge, "inventory"),
		Patients:     NewResource[Patient](bridge, "patients"),
		Appointments: NewResource[Appointment](bridge, "appointments"),
		Claims:       NewResource[Claim](bridge, "claims"),
		Expenses:     NewResource[Expense](bridge, "expenses"),
		bridge:       bridge,
	}
}

// FinancialSummary fetches the dashboard KPIs.
func (s *Services) FinancialSummary(ctx context.Context) (*FinancialSummary, error) {
	resp, err := s.bridge.Get(ctx, FinancialSummaryEndpoint)
	if err != nil {
		return nil, err
	}
	out, err := securebridge.DecodeResponse[FinancialSummary](resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LowStock lists inventory items of a branch at or below their reorder level.
func (s *Services) LowStock(ctx context.Context, branchID string) ([]InventoryItem, error) {
	var low []InventoryItem
	for page := 1; ; page++ {
		res, err := s.Inventory.List(ctx, ListOptions{Page: page, Limit: 100, Filters: map[string]string{"branchId": branchID}})
		if err != nil {
			return nil, err
		}
		for _, item := range res.Items {
			if item.NeedsReorder() {
				low = append(low, item)
			}
		}
		if len(res.Items) == 0 || res.Limit <= 0 || page*res.Limit >= res.Total {
			return low, nil
		}
	}
}
