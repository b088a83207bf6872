package kosis

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
)

// RawRow is one provider data row. Field names vary by table, so no fixed
// schema is assumed.
type RawRow map[string]interface{}

// TableMetadata is the synthesized descriptive metadata for one table.
type TableMetadata struct {
	TableID   string `json:"tableId"`
	Note      string `json:"note"`
	FetchedAt string `json:"fetchedAt"`
}

const DefaultOrgID = "101"

type DataParams struct {
	// OrgID of the owning organization; DefaultOrgID when empty.
	OrgID string
	// Overrides win over the defaulted classification/period parameters.
	Overrides map[string]string
}

// FetchTableData issues one GET against the data endpoint for tableID and
// returns its raw rows. A single-object payload is coerced into a one-row
// sequence.
func (c *Client) FetchTableData(ctx context.Context, tableID string, params DataParams) ([]RawRow, error) {
	const op = "fetch_data"

	orgID := params.OrgID
	if orgID == "" {
		orgID = DefaultOrgID
	}
	base := map[string]string{
		"method":       "getList",
		"orgId":        orgID,
		"tblId":        tableID,
		"objL1":        "ALL",
		"itmId":        "T10",
		"prdSe":        "Y",
		"newEstPrdCnt": "5",
	}
	query := mergeQuery(c.defaultQuery(), base, params.Overrides)

	body, err := c.get(ctx, op, tableID, dataEndpoint, query)
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	if err := sonic.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	var single RawRow
	if err := sonic.Unmarshal(body, &single); err == nil && len(single) > 0 {
		var pe providerError
		if err := sonic.Unmarshal(body, &pe); err == nil && pe.ErrMsg != "" {
			return nil, &APIError{Op: op, TableID: tableID, Kind: KindHTTPError, Message: pe.ErrMsg}
		}
		return []RawRow{single}, nil
	}

	return nil, &APIError{Op: op, TableID: tableID, Kind: KindBadPayload, Message: "invalid response format"}
}

// FetchMetadata returns descriptive metadata for tableID. KOSIS has no native
// metadata endpoint, so the descriptor is synthesized locally without a
// network call.
func (c *Client) FetchMetadata(_ context.Context, tableID string) (*TableMetadata, error) {
	return &TableMetadata{
		TableID:   tableID,
		Note:      "KOSIS exposes no metadata endpoint; placeholder synthesized locally",
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
