package headhunter

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "spigell/hh-career (spigelly@gmail.com)"

	// Kazakhstan.
	DefaultArea    = 40
	DefaultPerPage = 50
	DefaultOrderBy = "publication_time"
	// ExperienceNone is the hh.ru experience filter for "no experience".
	ExperienceNone = "noExperience"

	defaultListTimeout   = 10 * time.Second
	defaultDetailTimeout = 5 * time.Second
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// DetailTimeout bounds a single vacancy detail request.
	DetailTimeout time.Duration
}

// New creates a client for the public hh.ru API. The token is optional.
func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultListTimeout,
		},
		logger:        logger,
		UserAgent:     userAgent,
		DetailTimeout: defaultDetailTimeout,
	}
}

// Search returns a single page of vacancies matching params.
func (c *Client) Search(ctx context.Context, params *SearchParams) ([]*Vacancy, error) {
	return c.search(ctx, params)
}

// GetSkills fetches the vacancy behind detailURL and returns its key skill names.
func (c *Client) GetSkills(ctx context.Context, detailURL string) ([]string, error) {
	return c.getSkills(ctx, detailURL)
}
