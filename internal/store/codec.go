package store

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/content-fixer/internal/model"
)

// correctionRow is a correction as both backends read it from the database.
type correctionRow struct {
	ID            string
	SubjectKey    string
	Type          string
	Status        string
	Original      []byte
	Data          []byte
	FailureReason *string
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r correctionRow) decode() (*model.Correction, error) {
	t := model.CorrectionType(r.Type)
	orig, err := model.DecodeOriginal(t, r.Original)
	if err != nil {
		return nil, eris.Wrapf(err, "store: decode correction %s", r.ID)
	}
	c := &model.Correction{
		ID:         r.ID,
		SubjectKey: r.SubjectKey,
		Type:       t,
		Status:     model.CorrectionStatus(r.Status),
		Original:   orig,
		Attempts:   r.Attempts,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.FailureReason != nil {
		c.FailureReason = *r.FailureReason
	}
	if len(r.Data) > 0 {
		c.Data = &model.CorrectionData{}
		if err := json.Unmarshal(r.Data, c.Data); err != nil {
			return nil, eris.Wrapf(err, "store: decode correction data %s", r.ID)
		}
	}
	return c, nil
}

// contentColumns are the JSON-encoded parts of a content record.
type contentColumns struct {
	Vehicle []byte
	SEO     []byte
	FAQ     []byte
	Blocks  []byte
}

func encodeContent(rec *model.ContentRecord) (contentColumns, error) {
	var cols contentColumns
	var err error
	if cols.Vehicle, err = json.Marshal(rec.Vehicle); err != nil {
		return cols, eris.Wrap(err, "store: marshal vehicle data")
	}
	if cols.SEO, err = json.Marshal(rec.SEO); err != nil {
		return cols, eris.Wrap(err, "store: marshal seo data")
	}
	if cols.FAQ, err = json.Marshal(nonNil(rec.FAQ)); err != nil {
		return cols, eris.Wrap(err, "store: marshal faq")
	}
	if cols.Blocks, err = json.Marshal(nonNil(rec.Blocks)); err != nil {
		return cols, eris.Wrap(err, "store: marshal content blocks")
	}
	return cols, nil
}

func (cols contentColumns) decodeInto(rec *model.ContentRecord) error {
	if err := json.Unmarshal(cols.Vehicle, &rec.Vehicle); err != nil {
		return eris.Wrapf(err, "store: decode vehicle data %s", rec.Slug)
	}
	if err := json.Unmarshal(cols.SEO, &rec.SEO); err != nil {
		return eris.Wrapf(err, "store: decode seo data %s", rec.Slug)
	}
	if len(cols.FAQ) > 0 {
		if err := json.Unmarshal(cols.FAQ, &rec.FAQ); err != nil {
			return eris.Wrapf(err, "store: decode faq %s", rec.Slug)
		}
	}
	if len(cols.Blocks) > 0 {
		if err := json.Unmarshal(cols.Blocks, &rec.Blocks); err != nil {
			return eris.Wrapf(err, "store: decode content blocks %s", rec.Slug)
		}
	}
	return nil
}

// patchColumns encodes the non-nil parts of a patch, keyed by column name.
func patchColumns(p ContentPatch) (map[string][]byte, error) {
	out := make(map[string][]byte, 4)
	add := func(col string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return eris.Wrapf(err, "store: marshal %s", col)
		}
		out[col] = b
		return nil
	}
	if p.Vehicle != nil {
		if err := add("vehicle_data", p.Vehicle); err != nil {
			return nil, err
		}
	}
	if p.SEO != nil {
		if err := add("seo_data", p.SEO); err != nil {
			return nil, err
		}
	}
	if p.FAQ != nil {
		if err := add("faq", p.FAQ); err != nil {
			return nil, err
		}
	}
	if p.Blocks != nil {
		if err := add("content_blocks", p.Blocks); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// patchColumnOrder fixes the SET clause order so generated SQL is stable.
var patchColumnOrder = []string{"vehicle_data", "seo_data", "faq", "content_blocks"}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
