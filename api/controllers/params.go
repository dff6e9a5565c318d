package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/lotledger/api/validators"
	"github.com/angelmondragon/lotledger/pkg/pagination"
)

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// mapPage converts page rows into their response form, keeping the cursor.
func mapPage[T, D any](page pagination.Page[T], fn func(*T) D) pagination.Page[D] {
	out := pagination.Page[D]{Items: make([]D, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, fn(&page.Items[i]))
	}
	return out
}
