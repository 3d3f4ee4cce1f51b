package store

type activeProjectRow struct {
	ProjectID       string `gorm:"column:project_id;primaryKey"`
	ProjectName     string `gorm:"column:project_name"`
	InputDir        string `gorm:"column:input_dir"`
	TestType        string `gorm:"column:test_type"`
	Email           string `gorm:"column:email"`
	Progress        int    `gorm:"column:progress"`
	NumberOfSamples int    `gorm:"column:number_of_samples"`
	StartTime       string `gorm:"column:start_time"`
	SessionID       string `gorm:"column:session_id"`
	ScriptPath      string `gorm:"column:script_path"`
	VCFPathsJSON    string `gorm:"column:vcf_paths_json"`
}

func (activeProjectRow) TableName() string { return "active_projects" }

type completedProjectRow struct {
	ProjectID       string `gorm:"column:project_id;primaryKey"`
	ProjectName     string `gorm:"column:project_name"`
	Email           string `gorm:"column:email"`
	NumberOfSamples int    `gorm:"column:number_of_samples"`
	StartTime       string `gorm:"column:start_time"`
	CreationTime    string `gorm:"column:creation_time"`
	SessionID       string `gorm:"column:session_id"`
	VCFPathsJSON    string `gorm:"column:vcf_paths_json"`
}

func (completedProjectRow) TableName() string { return "completed_projects" }

type usageLedgerRow struct {
	Email     string `gorm:"column:email;primaryKey"`
	Remaining int    `gorm:"column:remaining"`
	UpdatedAt string `gorm:"column:updated_at"`
}

func (usageLedgerRow) TableName() string { return "usage_ledgers" }

type helpQueryRow struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name"`
	Email     string `gorm:"column:email"`
	Subject   string `gorm:"column:subject"`
	Message   string `gorm:"column:message"`
	CreatedAt string `gorm:"column:created_at"`
}

func (helpQueryRow) TableName() string { return "help_queries" }
