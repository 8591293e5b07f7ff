package model

import "strings"

// GetFeedReq binds GET /activity. Types is a comma separated list.
type GetFeedReq struct {
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Cursor string `query:"cursor" validate:"omitempty,max=120"`
	Types  string `query:"types" validate:"omitempty,max=200"`
}

func (r *GetFeedReq) Validate() error {
	r.Cursor = strings.TrimSpace(r.Cursor)
	r.Types = strings.TrimSpace(r.Types)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	if r.Limit == 0 {
		r.Limit = DefaultFeedLimit
	}

	for _, t := range r.typeList() {
		if !ActivityType(t).Valid() {
			return NewValidationError("types", "unknown activity type %q", t)
		}
	}
	return nil
}

func (r *GetFeedReq) typeList() []string {
	if r.Types == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(r.Types, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *GetFeedReq) ToQuery() FeedQuery {
	q := FeedQuery{Limit: r.Limit, Cursor: r.Cursor}
	for _, t := range r.typeList() {
		q.Types = append(q.Types, ActivityType(t))
	}
	return q
}
