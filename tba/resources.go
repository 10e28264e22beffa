package tba

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/briangreenhill/tba/model"
)

// maxTeamPages bounds AllTeams in case the origin never answers empty
const maxTeamPages = 100

var eventKeyPattern = regexp.MustCompile(`^[0-9]{4}[a-z0-9]+$`)

// TeamKey turns a team number ("254") or team key ("frc254") into a key.
func TeamKey(identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, "frc") {
		if _, err := model.ParseTeamKey(identifier); err != nil {
			return "", fmt.Errorf("team key %q: %w", identifier, ErrInvalidInput)
		}
		return identifier, nil
	}
	n, err := strconv.Atoi(identifier)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("team identifier %q: %w", identifier, ErrInvalidInput)
	}
	return "frc" + strconv.Itoa(n), nil
}

// EventKey validates an event key such as "2024casj".
func EventKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !eventKeyPattern.MatchString(key) {
		return "", fmt.Errorf("event key %q: %w", key, ErrInvalidInput)
	}
	return key, nil
}

func (c *Client) fetchModel(ctx context.Context, kind *model.Kind, path string, opts []FetchOption) (*model.Model, error) {
	raw, err := c.FetchRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return model.Wrap(kind, raw), nil
}

// fetchList returns an invalid list, not an error, when the origin answers
// with something other than an array.
func (c *Client) fetchList(ctx context.Context, kind *model.Kind, path string, opts []FetchOption) (*model.List, error) {
	raw, err := c.FetchRaw(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return model.NewList(kind, raw), nil
}

func (c *Client) teamPath(identifier, suffix string) (string, error) {
	key, err := TeamKey(identifier)
	if err != nil {
		return "", err
	}
	return "/team/" + key + suffix, nil
}

// Status returns the API status record.
func (c *Client) Status(ctx context.Context, opts ...FetchOption) (*model.Model, error) {
	return c.fetchModel(ctx, model.Status, "/status", opts)
}

// Team returns one team by number or key.
func (c *Client) Team(ctx context.Context, identifier string, opts ...FetchOption) (*model.Model, error) {
	path, err := c.teamPath(identifier, "")
	if err != nil {
		return nil, err
	}
	return c.fetchModel(ctx, model.Team, path, opts)
}

// TeamsPage returns one page of teams. A year of 0 lists teams of all years.
func (c *Client) TeamsPage(ctx context.Context, page, year int, opts ...FetchOption) (*model.List, error) {
	if page < 0 {
		return nil, fmt.Errorf("page %d: %w", page, ErrInvalidInput)
	}
	path := "/teams/" + strconv.Itoa(page)
	if year > 0 {
		path = fmt.Sprintf("/teams/%d/%d", year, page)
	}
	return c.fetchList(ctx, model.Team, path, opts)
}

// AllTeams walks team pages from 0 until the origin answers empty.
func (c *Client) AllTeams(ctx context.Context, year int, opts ...FetchOption) (*model.List, error) {
	var raw []any
	for page := 0; page < maxTeamPages; page++ {
		list, err := c.TeamsPage(ctx, page, year, opts...)
		if errors.Is(err, ErrEmptyResult) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("teams page %d: %w", page, err)
		}
		raw = append(raw, list.Raw()...)
	}
	if raw == nil {
		raw = []any{}
	}
	return model.NewList(model.Team, raw), nil
}

// TeamYearsParticipated returns the seasons a team competed in.
func (c *Client) TeamYearsParticipated(ctx context.Context, identifier string, opts ...FetchOption) ([]int, error) {
	path, err := c.teamPath(identifier, "/years_participated")
	if err != nil {
		return nil, err
	}
	v, err := c.Fetch(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("years for %s: %w", path, ErrParse)
	}
	years := make([]int, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, fmt.Errorf("years for %s: %w", path, ErrParse)
		}
		years = append(years, int(f))
	}
	return years, nil
}

// TeamEvents lists the events a team attended. A year of 0 means all years.
func (c *Client) TeamEvents(ctx context.Context, identifier string, year int, opts ...FetchOption) (*model.List, error) {
	suffix := "/events"
	if year > 0 {
		suffix += "/" + strconv.Itoa(year)
	}
	path, err := c.teamPath(identifier, suffix)
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Event, path, opts)
}

func (c *Client) TeamRobots(ctx context.Context, identifier string, opts ...FetchOption) (*model.List, error) {
	path, err := c.teamPath(identifier, "/robots")
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Robot, path, opts)
}

func (c *Client) TeamDistricts(ctx context.Context, identifier string, opts ...FetchOption) (*model.List, error) {
	path, err := c.teamPath(identifier, "/districts")
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.District, path, opts)
}

func (c *Client) TeamSocialMedia(ctx context.Context, identifier string, opts ...FetchOption) (*model.List, error) {
	path, err := c.teamPath(identifier, "/social_media")
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Media, path, opts)
}

// TeamAwards lists a team's awards. A year of 0 means all years.
func (c *Client) TeamAwards(ctx context.Context, identifier string, year int, opts ...FetchOption) (*model.List, error) {
	suffix := "/awards"
	if year > 0 {
		suffix += "/" + strconv.Itoa(year)
	}
	path, err := c.teamPath(identifier, suffix)
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Award, path, opts)
}

// TeamEventStatus returns a team's status at one event.
func (c *Client) TeamEventStatus(ctx context.Context, identifier, eventKey string, opts ...FetchOption) (*model.Model, error) {
	event, err := EventKey(eventKey)
	if err != nil {
		return nil, err
	}
	path, err := c.teamPath(identifier, "/event/"+event+"/status")
	if err != nil {
		return nil, err
	}
	return c.fetchModel(ctx, model.TeamEventStatus, path, opts)
}

func (c *Client) Event(ctx context.Context, eventKey string, opts ...FetchOption) (*model.Model, error) {
	key, err := EventKey(eventKey)
	if err != nil {
		return nil, err
	}
	return c.fetchModel(ctx, model.Event, "/event/"+key, opts)
}

func (c *Client) EventTeams(ctx context.Context, eventKey string, opts ...FetchOption) (*model.List, error) {
	key, err := EventKey(eventKey)
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Team, "/event/"+key+"/teams", opts)
}

func (c *Client) EventMatches(ctx context.Context, eventKey string, opts ...FetchOption) (*model.List, error) {
	key, err := EventKey(eventKey)
	if err != nil {
		return nil, err
	}
	return c.fetchList(ctx, model.Match, "/event/"+key+"/matches", opts)
}

func (c *Client) EventRankings(ctx context.Context, eventKey string, opts ...FetchOption) (*model.Model, error) {
	key, err := EventKey(eventKey)
	if err != nil {
		return nil, err
	}
	return c.fetchModel(ctx, model.EventRanking, "/event/"+key+"/rankings", opts)
}

// Districts lists the districts active in year.
func (c *Client) Districts(ctx context.Context, year int, opts ...FetchOption) (*model.List, error) {
	if year <= 0 {
		return nil, fmt.Errorf("district year %d: %w", year, ErrInvalidInput)
	}
	return c.fetchList(ctx, model.District, "/districts/"+strconv.Itoa(year), opts)
}
