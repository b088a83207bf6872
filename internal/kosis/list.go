package kosis

import (
	"context"

	"github.com/bytedance/sonic"
)

// TableDescriptor identifies one retrievable statistical table as returned by
// the list endpoint. Listing rows come in two flavors (branch nodes carry
// LIST_ID/LIST_NM, leaf tables TBL_ID/TBL_NM); missing fields stay empty.
type TableDescriptor struct {
	VwCd   string `json:"VW_CD"`
	ListID string `json:"LIST_ID"`
	ListNm string `json:"LIST_NM"`
	OrgID  string `json:"ORG_ID"`
	TblID  string `json:"TBL_ID"`
	TblNm  string `json:"TBL_NM"`
}

// providerError is the error payload KOSIS answers with, sometimes under
// HTTP 200.
type providerError struct {
	Err    string `json:"err"`
	ErrMsg string `json:"errMsg"`
}

func providerMessage(body []byte, fallback string) string {
	var pe providerError
	if err := sonic.Unmarshal(body, &pe); err == nil && pe.ErrMsg != "" {
		return pe.ErrMsg
	}
	return fallback
}

type ListParams struct {
	ViewCode string
	ParentID string
	// Extra query parameters; they win over the defaults.
	Extra map[string]string
}

// ListTables issues one GET against the table-listing endpoint and returns
// the available table descriptors.
func (c *Client) ListTables(ctx context.Context, params ListParams) ([]TableDescriptor, error) {
	const op = "list_tables"

	base := map[string]string{
		"method":       "getList",
		"vwCd":         params.ViewCode,
		"parentListId": params.ParentID,
	}
	query := mergeQuery(c.defaultQuery(), base, params.Extra)

	body, err := c.get(ctx, op, "", listEndpoint, query)
	if err != nil {
		return nil, err
	}

	var descriptors []TableDescriptor
	if err := sonic.Unmarshal(body, &descriptors); err == nil {
		return descriptors, nil
	}

	var pe providerError
	if err := sonic.Unmarshal(body, &pe); err == nil && pe.ErrMsg != "" {
		return nil, &APIError{Op: op, Kind: KindHTTPError, Message: pe.ErrMsg}
	}

	return nil, &APIError{Op: op, Kind: KindBadPayload, Message: "invalid response format"}
}
