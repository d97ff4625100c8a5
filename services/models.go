package services

type Branch struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Address   string `json:"address" validate:"required,max=250"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	ManagerID string `json:"managerId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type StaffMember struct {
	ID        string  `json:"id,omitempty"`
	BranchID  string  `json:"branchId" validate:"required"`
	Name      string  `json:"name" validate:"required,min=2,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Role      string  `json:"role" validate:"required,oneof=doctor nurse receptionist manager accountant"`
	Salary    float64 `json:"salary" validate:"gte=0"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

type PayrollRun struct {
	ID          string  `json:"id,omitempty"`
	StaffID     string  `json:"staffId" validate:"required"`
	PeriodStart string  `json:"periodStart" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string  `json:"periodEnd" validate:"required,datetime=2006-01-02"`
	Gross       float64 `json:"gross" validate:"gte=0"`
	Deductions  float64 `json:"deductions" validate:"gte=0"`
	Net         float64 `json:"net" validate:"gte=0"`
	Status      string  `json:"status" validate:"required,oneof=draft approved paid"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

type InvoiceLine struct {
	Description string  `json:"description" validate:"required,max=200"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
}

type Invoice struct {
	ID        string        `json:"id,omitempty"`
	PatientID string        `json:"patientId" validate:"required"`
	BranchID  string        `json:"branchId,omitempty"`
	Amount    float64       `json:"amount" validate:"gt=0"`
	Currency  string        `json:"currency,omitempty" validate:"omitempty,len=3"`
	Status    string        `json:"status" validate:"required,oneof=pending paid void"`
	DueDate   string        `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Lines     []InvoiceLine `json:"lines,omitempty" validate:"dive"`
	CreatedAt string        `json:"createdAt,omitempty"`
}

type InventoryItem struct {
	ID           string  `json:"id,omitempty"`
	BranchID     string  `json:"branchId" validate:"required"`
	SKU          string  `json:"sku" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=100"`
	Quantity     int     `json:"quantity" validate:"gte=0"`
	ReorderLevel int     `json:"reorderLevel" validate:"gte=0"`
	UnitCost     float64 `json:"unitCost" validate:"gte=0"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

// NeedsReorder reports whether stock is at or below the reorder level.
func (i InventoryItem) NeedsReorder() bool {
	return i.Quantity <= i.ReorderLevel
}

type Patient struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Age       int    `json:"age" validate:"min=0,max=150"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
	BranchID  string `json:"branchId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type Appointment struct {
	ID              string `json:"id,omitempty"`
	PatientID       string `json:"patientId" validate:"required"`
	StaffID         string `json:"staffId" validate:"required"`
	BranchID        string `json:"branchId,omitempty"`
	ScheduledAt     string `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes int    `json:"durationMinutes" validate:"gte=5,lte=480"`
	Status          string `json:"status" validate:"required,oneof=scheduled completed cancelled no_show"`
	Notes           string `json:"notes,omitempty" validate:"max=2000"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

type Claim struct {
	ID        string  `json:"id,omitempty"`
	PatientID string  `json:"patientId" validate:"required"`
	InvoiceID string  `json:"invoiceId" validate:"required"`
	Insurer   string  `json:"insurer" validate:"required,max=100"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Status    string  `json:"status" validate:"required,oneof=submitted approved rejected paid"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

type Expense struct {
	ID          string  `json:"id,omitempty"`
	BranchID    string  `json:"branchId" validate:"required"`
	Category    string  `json:"category" validate:"required,oneof=supplies rent utilities payroll equipment other"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description,omitempty" validate:"max=500"`
	IncurredOn  string  `json:"incurredOn" validate:"required,datetime=2006-01-02"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// FinancialSummary is the KPI block shown on the dashboard's home page.
type FinancialSummary struct {
	TotalRevenue  float64  `json:"totalRevenue"`
	Outstanding   float64  `json:"outstanding" validate:"gte=0"`
	TotalExpenses float64  `json:"totalExpenses" validate:"gte=0"`
	NetIncome     float64  `json:"netIncome"`
	InvoiceCount  int      `json:"invoiceCount" validate:"min=0"`
	ExpenseCount  int      `json:"expenseCount" validate:"min=0"`
	Branches      []string `json:"branches"`
	GeneratedAt   string   `json:"generatedAt" validate:"required"`
}
