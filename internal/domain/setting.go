package domain

// Setting is a typed key/value configuration row edited through the settings
// screen. Type is a display hint ("string", "number"), not enforced storage.
type Setting struct {
	Key         string
	Value       string
	Category    string
	Label       string
	Description string
	Type        string
}

// Well-known setting keys seeded by the first migration.
const (
	SettingInvoicePrefix     = "invoice_prefix"
	SettingNextInvoiceNumber = "next_invoice_number"
	SettingDefaultHourlyCost = "default_hourly_cost"
	SettingCompanyName       = "company_name"
	SettingCompanyAddress    = "company_address"
	SettingCompanyEmail      = "company_email"
	SettingTimeEntryFormat   = "time_entry_format"
)
