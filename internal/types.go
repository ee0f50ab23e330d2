package internal

type ClassificationSource string

const (
	SourceRules  ClassificationSource = "rules"
	SourceLLM    ClassificationSource = "llm"
	SourceManual ClassificationSource = "manual"
)

type AttachmentStatus string

const (
	AttachmentPending   AttachmentStatus = "pending"
	AttachmentProcessed AttachmentStatus = "processed"
	AttachmentFailed    AttachmentStatus = "failed"
	AttachmentExported  AttachmentStatus = "exported"
)

// FormTypeDefinition is one entry of the form-type catalog. Phrase sets are
// expected lowercase and deduplicated; catalog.NormalizeDefinition does that
// at the load boundary.
type FormTypeDefinition struct {
	ID               string   `json:"id" yaml:"id,omitempty"`
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords         []string `json:"keywords" yaml:"keywords"`
	RequiredFields   []string `json:"required_fields" yaml:"required_fields"`
	FilenamePatterns []string `json:"filename_patterns" yaml:"filename_patterns"`
}

type ClassificationInput struct {
	Text       string
	Filename   string
	PageNumber *int
}

type ComponentScores struct {
	Keyword  float64 `json:"keyword"`
	Fields   float64 `json:"fields"`
	Position float64 `json:"position"`
	Filename float64 `json:"filename"`
}

func (c ComponentScores) Total() float64 {
	return c.Keyword + c.Fields + c.Position + c.Filename
}

type Validation struct {
	IsComplete    bool     `json:"isComplete"`
	MissingFields []string `json:"missingFields"`
	Suggestions   []string `json:"suggestions"`
}

type ExtractedData struct {
	Source          ClassificationSource `json:"source"`
	Preset          string               `json:"preset,omitempty"`
	MatchedKeywords []string             `json:"matchedKeywords"`
	MatchedFields   []string             `json:"matchedFields"`
	Components      *ComponentScores     `json:"components,omitempty"`
	PageNumber      *int                 `json:"pageNumber,omitempty"`
	Filename        string               `json:"filename,omitempty"`
	Metadata        map[string]any       `json:"metadata,omitempty"`
	Validation      *Validation          `json:"validation,omitempty"`
}

type ClassificationResult struct {
	FormTypeID      string        `json:"formTypeId"`
	FormTypeName    string        `json:"formTypeName"`
	ConfidenceScore float64       `json:"confidenceScore"`
	ExtractedData   ExtractedData `json:"extractedData"`
}

// FormTypeRecord is a stored catalog row with its identification rules
// still in their loose JSON form.
type FormTypeRecord struct {
	ID          string
	Name        string
	Description string
	RulesJSON   string
	UpdatedAt   string
}

type EmailRow struct {
	ID         string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	RawRef     string
}

type AttachmentRow struct {
	ID              string
	EmailID         *string
	Filename        string
	ContentType     string
	Hash            string
	RawRef          string
	Status          AttachmentStatus
	ProcessingError *string
	ProcessedAt     *string
}

type PageRow struct {
	ID           string
	AttachmentID string
	PageNumber   int
	TextContent  string
	OCRText      *string
	FormType     *string
	Confidence   *float64
}

type ClassificationRow struct {
	ID              string
	PageID          string
	AttachmentID    string
	FormTypeID      string
	FormTypeName    string
	ConfidenceScore float64
	ExtractedData   ExtractedData
	ManualOverride  bool
	LastModifiedBy  *string
	UpdatedAt       string
}

type ExportRow struct {
	AttachmentID    string
	Filename        string
	EmailSubject    *string
	EmailSender     *string
	PageNumber      int
	FormType        *string
	Confidence      *float64
	Source          *string
	ManualOverride  bool
	ModifiedBy      *string
	MatchedKeywords *string
}
