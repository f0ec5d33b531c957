package opportunityinfo

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yoma-opportunity/internal/domain"
)

// exportFileLayout renders Transactions_{yyyy-dd-M--HH-mm-ss}.csv.
const exportFileLayout = "2006-02-1--15-04-05"

var exportHeader = []string{
	"Id", "Title", "Type", "Organization", "Status", "Published",
	"DateStart", "DateEnd", "Commitment", "Difficulty",
	"ZltoReward", "YomaReward", "ParticipantLimit",
	"ParticipantCountCompleted", "ParticipantCountPending", "ParticipantCountTotal",
	"Featured", "Hidden", "ShareWithPartners",
	"Categories", "Countries", "Languages", "Skills", "VerificationTypes", "Keywords", "Url",
}

// ExportToCSV renders the admin search as CSV. With an export store the file
// is also uploaded and a download URL returned.
func (s *service) ExportToCSV(ctx context.Context, actor domain.Actor, filter domain.OpportunitySearchFilterAdmin) (*domain.OpportunityExport, error) {
	filter.TotalCountOnly = false
	if len(filter.OrderInstructions) == 0 {
		filter.OrderInstructions = publicOrder
	}
	res, err := s.SearchAdmin(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range res.Items {
		if err := w.Write(exportRecord(&res.Items[i])); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	out := &domain.OpportunityExport{
		FileName: "Transactions_" + s.now().Format(exportFileLayout) + ".csv",
		Bytes:    buf.Bytes(),
	}
	if s.exports == nil {
		return out, nil
	}

	key := path.Join(s.exportPath, uuid.New().String(), out.FileName)
	if err := s.exports.Upload(ctx, key, bytes.NewReader(out.Bytes), "text/csv"); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	url, err := s.exports.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("export url: %w", err)
	}
	out.URL = &url
	s.log.WithField("key", key).WithField("rows", len(res.Items)).Info("opportunity export uploaded")
	return out, nil
}

func exportRecord(o *domain.OpportunityInfo) []string {
	return []string{
		o.ID,
		o.Title,
		o.Type,
		o.OrganizationName,
		string(o.Status),
		strconv.FormatBool(o.Published),
		o.DateStart.Format(time.RFC3339),
		formatTime(o.DateEnd),
		o.CommitmentIntervalDescription,
		o.Difficulty,
		formatFloat(o.ZltoReward),
		formatFloat(o.YomaReward),
		formatInt(o.ParticipantLimit),
		strconv.Itoa(o.ParticipantCountCompleted),
		strconv.Itoa(o.ParticipantCountPending),
		strconv.Itoa(o.ParticipantCountTotal),
		strconv.FormatBool(o.Featured),
		strconv.FormatBool(o.Hidden),
		strconv.FormatBool(o.ShareWithPartners),
		joinNames(o.Categories),
		joinNames(o.Countries),
		joinNames(o.Languages),
		joinNames(o.Skills),
		joinVerificationTypes(o.VerificationTypes),
		strings.Join(o.Keywords, domain.KeywordsSeparator),
		o.InfoURL,
	}
}

func joinNames(items []domain.Lookup) string {
	names := make([]string, len(items))
	for i, l := range items {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}

func joinVerificationTypes(items []domain.OpportunityVerificationType) string {
	names := make([]string, len(items))
	for i, vt := range items {
		names[i] = string(vt.Type)
	}
	return strings.Join(names, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
