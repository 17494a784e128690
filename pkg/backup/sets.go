package backup

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/edgefiler/filer_sdk_go/pkg/gateway"
)

// BooleanFunction combines the filter rules of a backup set.
type BooleanFunction string

const (
	And BooleanFunction = "AND"
	Or  BooleanFunction = "OR"
)

// FileField is the file attribute a filter rule matches on.
type FileField string

const (
	FieldType     FileField = "FileType"
	FieldName     FileField = "FileName"
	FieldPath     FileField = "FullPath"
	FieldSize     FileField = "FileSize"
	FieldModified FileField = "LastModified"
)

// Operator compares a file attribute with the value of a rule.
type Operator string

const (
	OpEquals      Operator = "Equals"
	OpNotEquals   Operator = "NotEquals"
	OpStartsWith  Operator = "StartsWith"
	OpEndsWith    Operator = "EndsWith"
	OpContains    Operator = "Contains"
	OpNotContains Operator = "NotContains"
	OpIn          Operator = "In"
	OpNotIn       Operator = "NotIn"
	OpMoreThan    Operator = "MoreThan"
	OpLessThan    Operator = "LessThan"
	OpBefore      Operator = "Before"
	OpAfter       Operator = "After"
)

// RuleTypeFile is the only rule type file exclusion builders produce.
const RuleTypeFile = "File"

// TimeLayout is the wire format of date filter values.
const TimeLayout = "2006-01-02T15:04:05"

const (
	filterRuleClass      = "FilterRule"
	backupSetClass       = "BackupSet"
	filterBackupSetClass = "FilterBackupSet"
	rootDirName          = "root"
)

var (
	fileFields       = []any{FieldType, FieldName, FieldPath, FieldSize, FieldModified}
	booleanFunctions = []any{And, Or}

	listOperators    = []any{OpIn, OpNotIn}
	stringOperators  = []any{OpEquals, OpNotEquals, OpStartsWith, OpEndsWith, OpContains, OpNotContains}
	integerOperators = []any{OpEquals, OpNotEquals, OpMoreThan, OpLessThan}
	dateOperators    = []any{OpBefore, OpAfter}
)

// FilterRule matches files by one attribute. Value is a []string for list
// rules, a string, an int64 size in bytes or a time.Time.
type FilterRule struct {
	Type     string
	Field    FileField
	Operator Operator
	Value    any
}

func (r FilterRule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(RuleTypeFile)),
		validation.Field(&r.Field, validation.Required, validation.In(fileFields...)),
		validation.Field(&r.Operator, validation.Required, validation.In(r.operators()...)),
		validation.Field(&r.Value, validation.By(r.checkValue)),
	)
}

func (r FilterRule) operators() []any {
	switch r.Value.(type) {
	case []string:
		return listOperators
	case string:
		return stringOperators
	case int64:
		return integerOperators
	case time.Time:
		return dateOperators
	}
	return nil
}

func (r FilterRule) checkValue(any) error {
	switch v := r.Value.(type) {
	case []string:
		if r.Field != FieldType && r.Field != FieldName && r.Field != FieldPath {
			return fmt.Errorf("a list is not valid for %s", r.Field)
		}
		if len(v) == 0 {
			return fmt.Errorf("cannot be empty")
		}
		for _, s := range v {
			if s == "" {
				return fmt.Errorf("cannot contain empty values")
			}
		}
	case string:
		if r.Field != FieldType && r.Field != FieldName && r.Field != FieldPath {
			return fmt.Errorf("a string is not valid for %s", r.Field)
		}
		if v == "" {
			return fmt.Errorf("cannot be blank")
		}
	case int64:
		if r.Field != FieldSize {
			return fmt.Errorf("a size is not valid for %s", r.Field)
		}
		if v < 0 {
			return fmt.Errorf("must be no less than 0")
		}
	case time.Time:
		if r.Field != FieldModified {
			return fmt.Errorf("a date is not valid for %s", r.Field)
		}
		if v.IsZero() {
			return fmt.Errorf("cannot be blank")
		}
	default:
		return fmt.Errorf("unsupported value %T", r.Value)
	}
	return nil
}

// ServerObject returns the management API representation of r.
func (r FilterRule) ServerObject() gateway.Object {
	value := r.Value
	if t, ok := value.(time.Time); ok {
		value = t.Format(TimeLayout)
	}
	return gateway.Object{
		"_classname": filterRuleClass,
		"type":       r.Type,
		"field":      string(r.Field),
		"operator":   string(r.Operator),
		"value":      value,
	}
}

func (r FilterRule) String() string {
	return fmt.Sprintf("%s %s %v", r.Field, r.Operator, r.Value)
}

// ListCriteria builds rules matching one of several values.
type ListCriteria struct{ field FileField }

func (c ListCriteria) In(values ...string) FilterRule {
	return fileRule(c.field, OpIn, values)
}

func (c ListCriteria) NotIn(values ...string) FilterRule {
	return fileRule(c.field, OpNotIn, values)
}

// StringCriteria builds rules comparing a single string.
type StringCriteria struct{ field FileField }

func (c StringCriteria) Equals(s string) FilterRule      { return fileRule(c.field, OpEquals, s) }
func (c StringCriteria) NotEquals(s string) FilterRule   { return fileRule(c.field, OpNotEquals, s) }
func (c StringCriteria) StartsWith(s string) FilterRule  { return fileRule(c.field, OpStartsWith, s) }
func (c StringCriteria) EndsWith(s string) FilterRule    { return fileRule(c.field, OpEndsWith, s) }
func (c StringCriteria) Contains(s string) FilterRule    { return fileRule(c.field, OpContains, s) }
func (c StringCriteria) NotContains(s string) FilterRule { return fileRule(c.field, OpNotContains, s) }

// IntegerCriteria builds rules comparing a file size in bytes.
type IntegerCriteria struct{ field FileField }

func (c IntegerCriteria) Equals(n int64) FilterRule    { return fileRule(c.field, OpEquals, n) }
func (c IntegerCriteria) NotEquals(n int64) FilterRule { return fileRule(c.field, OpNotEquals, n) }
func (c IntegerCriteria) MoreThan(n int64) FilterRule  { return fileRule(c.field, OpMoreThan, n) }
func (c IntegerCriteria) LessThan(n int64) FilterRule  { return fileRule(c.field, OpLessThan, n) }

// DateTimeCriteria builds rules comparing the last modification time.
type DateTimeCriteria struct{ field FileField }

func (c DateTimeCriteria) Before(t time.Time) FilterRule { return fileRule(c.field, OpBefore, t) }
func (c DateTimeCriteria) After(t time.Time) FilterRule  { return fileRule(c.field, OpAfter, t) }

func fileRule(field FileField, op Operator, value any) FilterRule {
	return FilterRule{Type: RuleTypeFile, Field: field, Operator: op, Value: value}
}

// File exclusion builders.
//
//	rules := []backup.FilterRule{
//		backup.FileExtensions().In("tmp", "bak"),
//		backup.FileSize().MoreThan(4 << 30),
//	}
func FileExtensions() ListCriteria       { return ListCriteria{FieldType} }
func FileNames() ListCriteria            { return ListCriteria{FieldName} }
func FileName() StringCriteria           { return StringCriteria{FieldName} }
func FilePaths() ListCriteria            { return ListCriteria{FieldPath} }
func FilePath() StringCriteria           { return StringCriteria{FieldPath} }
func FileSize() IntegerCriteria          { return IntegerCriteria{FieldSize} }
func FileLastModified() DateTimeCriteria { return DateTimeCriteria{FieldModified} }

// TreeEntry is a node of a backup set directory tree.
type TreeEntry interface {
	validation.Validatable
	ServerObject() gateway.Object
}

// FileEntry selects a single file. A nil Included inherits from the parent.
type FileEntry struct {
	Name        string
	DisplayName string
	Included    *bool
}

func (e FileEntry) Validate() error {
	return validation.ValidateStruct(&e, validation.Field(&e.Name, validation.Required))
}

func (e FileEntry) ServerObject() gateway.Object {
	return gateway.Object{
		"name":        e.Name,
		"displayName": nullable(e.DisplayName),
		"isIncluded":  included(e.Included),
	}
}

// DirEntry selects a directory and, through Children, parts of its content.
type DirEntry struct {
	Name        string
	DisplayName string
	Included    *bool
	Children    []TreeEntry
}

func (e DirEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Children),
	)
}

func (e DirEntry) ServerObject() gateway.Object {
	obj := FileEntry{Name: e.Name, DisplayName: e.DisplayName, Included: e.Included}.ServerObject()
	obj["children"] = nil
	if e.Children != nil {
		children := make([]gateway.Object, 0, len(e.Children))
		for _, c := range e.Children {
			children = append(children, c.ServerObject())
		}
		obj["children"] = children
	}
	return obj
}

// RootDir returns the root of a directory tree.
func RootDir(include bool) DirEntry {
	return DirEntry{Name: rootDirName, Included: &include}
}

// BackupSet selects what the backup service protects. A nil DirectoryTree
// includes everything under the root and an empty BooleanFunction means And.
// Filter marks a set defined only by its rules (FilterBackupSet).
type BackupSet struct {
	Name            string
	Enabled         bool
	DirectoryTree   *DirEntry
	FilterRules     []FilterRule
	BooleanFunction BooleanFunction
	DefaultDirs     []string
	TemplateDirs    []string
	Comment         string
	Filter          bool
}

// NewBackupSet returns an enabled set named name covering the whole tree.
func NewBackupSet(name string, rules ...FilterRule) BackupSet {
	return BackupSet{Name: name, Enabled: true, FilterRules: rules}
}

func (s BackupSet) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.DirectoryTree),
		validation.Field(&s.FilterRules),
		validation.Field(&s.BooleanFunction, validation.In(booleanFunctions...)),
	)
}

// ServerObject returns the management API representation of s.
func (s BackupSet) ServerObject() gateway.Object {
	class := backupSetClass
	if s.Filter {
		class = filterBackupSetClass
	}
	tree := RootDir(true)
	if s.DirectoryTree != nil {
		tree = *s.DirectoryTree
	}
	fn := s.BooleanFunction
	if fn == "" {
		fn = And
	}
	var rules any
	if s.FilterRules != nil {
		objs := make([]gateway.Object, 0, len(s.FilterRules))
		for _, r := range s.FilterRules {
			objs = append(objs, r.ServerObject())
		}
		rules = objs
	}
	return gateway.Object{
		"_classname":          class,
		"name":                s.Name,
		"isEnabled":           s.Enabled,
		"directoryTree":       tree.ServerObject(),
		"booleanFunction":     string(fn),
		"templateDirectories": stringList(s.TemplateDirs),
		"defaultDirs":         stringList(s.DefaultDirs),
		"comment":             nullable(s.Comment),
		"filterRules":         rules,
	}
}

func (s BackupSet) String() string {
	return s.Name
}

// BackupSetObjects validates sets and converts them for the management API,
// reporting every invalid set.
func BackupSetObjects(sets ...BackupSet) ([]gateway.Object, error) {
	var result *multierror.Error
	for i, s := range sets {
		if err := s.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("backup set %d (%v): %w", i, s, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	out := make([]gateway.Object, 0, len(sets))
	for _, s := range sets {
		out = append(out, s.ServerObject())
	}
	return out, nil
}

func included(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func stringList(values []string) any {
	if values == nil {
		return nil
	}
	return values
}
