package headhunter

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/hh-career/internal/vacancy"
)

const (
	SalaryUnknown     = "Не указана"
	EmploymentUnknown = "Не указано"
	SnippetUnknown    = "Нет описания."
)

// Vacancy is the job board's native vacancy item as returned by search.
type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Salary *struct {
		From     *int   `json:"from,omitempty"`
		To       *int   `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
	} `json:"salary,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Employment   struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employment,omitempty"`
	Snipet struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// VacancyDetail is the part of the vacancy detail resource the fetcher needs.
type VacancyDetail struct {
	ID        string `json:"id"`
	KeySkills []struct {
		Name string `json:"name"`
	} `json:"key_skills"`
}

func (d *VacancyDetail) SkillNames() []string {
	names := make([]string, 0, len(d.KeySkills))
	for _, s := range d.KeySkills {
		if name := strings.TrimSpace(s.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Card normalizes the raw item into the canonical vacancy record.
func (va *Vacancy) Card(skills []string) *vacancy.Vacancy {
	if skills == nil {
		skills = []string{}
	}

	employment := va.Employment.Name
	if employment == "" {
		employment = EmploymentUnknown
	}

	snippet := va.Snipet.Requirement
	if snippet == "" {
		snippet = SnippetUnknown
	}

	return &vacancy.Vacancy{
		ID:         va.ID,
		Title:      va.Name,
		Company:    va.Employer.Name,
		EmployerID: va.Employer.ID,
		City:       va.Area.Name,
		Salary:     va.SalaryDisplay(),
		URL:        va.AlternateURL,
		Employment: employment,
		Snippet:    snippet,
		Skills:     skills,
	}
}

// SalaryDisplay renders the salary range, e.g. "100 000 - 150 000 KZT", "от 100 000 KZT".
func (va *Vacancy) SalaryDisplay() string {
	if va.Salary == nil {
		return SalaryUnknown
	}

	from, to := 0, 0
	if va.Salary.From != nil {
		from = *va.Salary.From
	}
	if va.Salary.To != nil {
		to = *va.Salary.To
	}
	currency := strings.ToUpper(strings.TrimSpace(va.Salary.Currency))

	var display string
	switch {
	case from != 0 && to != 0:
		display = groupThousands(from) + " - " + groupThousands(to)
	case from != 0:
		display = "от " + groupThousands(from)
	case to != 0:
		display = "до " + groupThousands(to)
	default:
		return SalaryUnknown
	}

	if currency != "" {
		display += " " + currency
	}
	return display
}

// groupThousands formats n with a space between every three digits.
func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

type ExcludedVacancies struct {
	Items []*ExcludedVacancy
}

type ExcludedVacancy struct {
	ID           string
	URL          string
	EmployerName string
	ExcludedAt   time.Time
}

// ToExcluded converts scored records to exclude file entries.
func ToExcluded(items []*vacancy.Scored) *ExcludedVacancies {
	excluded := &ExcludedVacancies{}
	for _, v := range items {
		excluded.Items = append(excluded.Items, &ExcludedVacancy{
			ID:           v.ID,
			URL:          v.URL,
			EmployerName: v.Company,
			ExcludedAt:   time.Now().UTC(),
		})
	}
	return excluded
}

// GetExcludedVacanciesFromFile reads the exclude file. A missing or empty file yields an empty list.
func GetExcludedVacanciesFromFile(path string) (*ExcludedVacancies, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &ExcludedVacancies{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedVacancies{}, nil
	}

	var excluded ExcludedVacancies
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (v *ExcludedVacancies) Append(s *ExcludedVacancies) {
	v.Items = append(v.Items, s.Items...)
}

func (v *ExcludedVacancies) VacanciesIDs() []string {
	ids := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		ids = append(ids, vacancy.ID)
	}
	return ids
}

func (v *ExcludedVacancies) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
