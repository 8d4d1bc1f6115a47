package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"
)

type SearchParams struct {
	// hhparam is custom tag for reflect. Please see buildParams.
	Text       string   `hhparam:"text"`
	Area       int      `hhparam:"area"`
	PerPage    int      `hhparam:"per_page"`
	Page       int      `hhparam:"page"`
	OrderBy    string   `hhparam:"order_by"`
	Experience string   `hhparam:"experience"`
	Schedules  []string `hhparam:"schedule"`
	// Period limits results to vacancies published within that many days.
	Period uint `hhparam:"period"`
}

func (c *Client) search(ctx context.Context, params *SearchParams) ([]*Vacancy, error) {
	if params == nil {
		params = &SearchParams{}
	}

	q := buildParams(params)
	apiURLSearch := fmt.Sprintf("%s%s", strings.TrimRight(c.APIURL, "/"), SearchPath)

	items, err := c.GetPage(ctx, apiURLSearch, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", params.Text, err)
	}

	var vacancies []*Vacancy
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &vacancies,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode vacancies: %w", err)
	}

	return vacancies, nil
}

func (c *Client) getSkills(ctx context.Context, detailURL string) ([]string, error) {
	if strings.TrimSpace(detailURL) == "" {
		return nil, fmt.Errorf("vacancy detail url is empty")
	}

	if c.DetailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DetailTimeout)
		defer cancel()
	}

	var detail VacancyDetail
	if err := c.getJSON(ctx, detailURL, nil, &detail); err != nil {
		return nil, fmt.Errorf("get vacancy detail: %w", err)
	}

	return detail.SkillNames(), nil
}

// buildParams turns params into url values. Zero values are skipped, except
// page which is always sent.
func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()
	fields := reflect.VisibleFields(value.Type())
	for _, field := range fields {
		key := field.Tag.Get("hhparam")
		if key == "" {
			continue
		}

		switch v := value.FieldByIndex(field.Index).Interface().(type) {
		case []string:
			for _, item := range v {
				if item = strings.TrimSpace(item); item != "" {
					q.Add(key, item)
				}
			}
		default:
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	q.Set("page", strconv.Itoa(params.Page))

	return q
}
