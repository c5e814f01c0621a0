package devjewels

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// validateStock converts raw stock records into validated records, collecting
// per-record failures instead of aborting.
func validateStock(raw []json.RawMessage) *StockFeed {
	feed := &StockFeed{Records: make([]StockRecord, 0, len(raw))}
	for i, msg := range raw {
		var r RawStockRecord
		if err := json.Unmarshal(msg, &r); err != nil {
			feed.Rejected = append(feed.Rejected, &RecordError{Feed: feedStock, Index: i, Err: fmt.Errorf("%w: %v", ErrMalformedRecord, err)})
			continue
		}
		designNo := strings.TrimSpace(r.DesignNo.String())
		if designNo == "" {
			feed.Rejected = append(feed.Rejected, &RecordError{Feed: feedStock, Index: i, Err: ErrMissingDesignNo})
			continue
		}

		rec := StockRecord{
			DesignNo:     designNo,
			JobNo:        strings.TrimSpace(r.JobNo.String()),
			MetalType:    r.MetalType.String(),
			MetalQuality: r.MetalQuality.String(),
			Gwt:          r.Gwt.String(),
			Nwt:          r.Nwt.String(),
			Dwt:          r.Dwt.String(),
			Size:         r.Size.String(),
			Memo:         isMemo(r.MemoStock.String()),
			RawAmount:    r.TotAmt.String(),
		}
		if amt, err := decimal.NewFromString(strings.TrimSpace(rec.RawAmount)); err == nil {
			rec.TotalAmount = amt
			rec.AmountValid = true
		}
		feed.Records = append(feed.Records, rec)
	}
	return feed
}

// validateDesigns converts raw design records into validated records.
func validateDesigns(raw []json.RawMessage) *DesignFeed {
	feed := &DesignFeed{Records: make([]DesignRecord, 0, len(raw))}
	for i, msg := range raw {
		var r RawDesignRecord
		if err := json.Unmarshal(msg, &r); err != nil {
			feed.Rejected = append(feed.Rejected, &RecordError{Feed: feedDesign, Index: i, Err: fmt.Errorf("%w: %v", ErrMalformedRecord, err)})
			continue
		}
		designNo := strings.TrimSpace(r.DesignNo.String())
		if designNo == "" {
			feed.Rejected = append(feed.Rejected, &RecordError{Feed: feedDesign, Index: i, Err: ErrMissingDesignNo})
			continue
		}

		rec := DesignRecord{
			DesignNo:    designNo,
			Category:    optional(r.Category),
			Subcategory: optional(r.Subcategory),
			Description: optional(r.Description),
			Gender:      optional(r.Gender),
			Collection:  optional(r.Collection),
			ProductType: optional(r.ProductType),
			ImagePath:   optional(r.ImagePath),
		}
		if rec.Description == nil {
			rec.Description = optional(r.TitleLine)
		}
		if rec.ImagePath == nil {
			rec.ImagePath = optional(r.ImageBasePath)
		}
		feed.Records = append(feed.Records, rec)
	}
	return feed
}

func optional(f *FlexString) *string {
	if f == nil {
		return nil
	}
	s := f.String()
	return &s
}

// isMemo interprets the memostock flag. Only "1" (or a boolean true) marks memo.
func isMemo(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true":
		return true
	}
	return false
}
