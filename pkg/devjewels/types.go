package devjewels

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	feedStock  = "stock"
	feedDesign = "design"
)

// FeedRequest is the body both DevJewels endpoints expect.
type FeedRequest struct {
	UserID string `json:"userid"`
}

// feedEnvelope wraps every feed response. Data is nil when the key is absent.
type feedEnvelope struct {
	Data *[]json.RawMessage `json:"data"`
}

// FlexString accepts a JSON string, number or bool and keeps its textual form.
// The feeds are inconsistent about quoting numeric fields.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '{', '[':
		return fmt.Errorf("expected scalar value, got %q", b[:1])
	default:
		*f = FlexString(b)
	}
	return nil
}

// String returns the underlying text.
func (f FlexString) String() string { return string(f) }

// RawStockRecord is a stock feed record as received.
type RawStockRecord struct {
	DesignNo     FlexString `json:"design_no"`
	JobNo        FlexString `json:"job_no"`
	MetalType    FlexString `json:"metal_type"`
	MetalQuality FlexString `json:"metal_quality"`
	Gwt          FlexString `json:"gwt"`
	Nwt          FlexString `json:"nwt"`
	Dwt          FlexString `json:"dwt"`
	Size         FlexString `json:"size"`
	MemoStock    FlexString `json:"memostock"`
	TotAmt       FlexString `json:"totamt"`
}

// RawDesignRecord is a design feed record as received. Pointer fields are nil
// when the key is absent or null.
type RawDesignRecord struct {
	DesignNo      FlexString  `json:"design_no"`
	Category      *FlexString `json:"category"`
	Subcategory   *FlexString `json:"subcategory"`
	Description   *FlexString `json:"description"`
	TitleLine     *FlexString `json:"titleline"`
	Gender        *FlexString `json:"gender"`
	Collection    *FlexString `json:"collection"`
	ProductType   *FlexString `json:"product_type"`
	ImagePath     *FlexString `json:"image_path"`
	ImageBasePath *FlexString `json:"image_base_path"`
}

// StockRecord is a validated stock feed record.
type StockRecord struct {
	DesignNo     string
	JobNo        string
	MetalType    string
	MetalQuality string
	Gwt          string
	Nwt          string
	Dwt          string
	Size         string
	Memo         bool
	RawAmount    string
	TotalAmount  decimal.Decimal
	// AmountValid is false when totamt was missing or not numeric.
	AmountValid bool
}

// DesignRecord is a validated design feed record. Nil fields were not supplied
// by the feed and must fall back to locally stored values.
type DesignRecord struct {
	DesignNo    string
	Category    *string
	Subcategory *string
	Description *string
	Gender      *string
	Collection  *string
	ProductType *string
	ImagePath   *string
}

// StockFeed is the result of a stock fetch.
type StockFeed struct {
	Records  []StockRecord
	Rejected []*RecordError
}

// DesignFeed is the result of a design fetch.
type DesignFeed struct {
	Records  []DesignRecord
	Rejected []*RecordError
}

// Total returns the number of records the feed delivered, valid or not.
func (f *DesignFeed) Total() int {
	return len(f.Records) + len(f.Rejected)
}
