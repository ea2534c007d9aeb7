package reporting

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/market-sentinel-bot/internal/analyzer"
	"github.com/ducminhle1904/market-sentinel-bot/internal/groups"
	"github.com/ducminhle1904/market-sentinel-bot/internal/strategy"
)

// ExcelReporter writes a group analysis workbook: one summary sheet plus a
// detail sheet per symbol.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	bullish  int
	bearish  int
	neutral  int
}

func newExcelStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	if styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return styles, err
	}

	if styles.bullish, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "006100"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	}); err != nil {
		return styles, err
	}

	if styles.bearish, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	}); err != nil {
		return styles, err
	}

	styles.neutral, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "3F3F76"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"EDEDED"}, Pattern: 1},
	})
	return styles, err
}

func sentimentStyle(styles excelStyles, s strategy.Sentiment) int {
	switch s {
	case strategy.SentimentBullish:
		return styles.bullish
	case strategy.SentimentBearish:
		return styles.bearish
	}
	return styles.neutral
}

// WriteGroupReport renders the analyses of one group into an xlsx file.
func (r *ExcelReporter) WriteGroupReport(path string, g *groups.Group, analyses map[string]*analyzer.Analysis) error {
	fx := excelize.NewFile()
	defer fx.Close()

	styles, err := newExcelStyles(fx)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	summary := "Summary"
	if err := fx.SetSheetName("Sheet1", summary); err != nil {
		return err
	}

	headers := []string{"Symbol", "Sentiment", "Strength", "Confidence", "Buy", "Sell",
		"Close", "Stop Long", "Target Long", "Stop Short", "Target Short", "Ran At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(summary, cell, h)
		fx.SetCellStyle(summary, cell, cell, styles.header)
	}

	keys := make([]string, 0, len(analyses))
	for key := range analyses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for rowIdx, key := range keys {
		a := analyses[key]
		v := a.Verdict
		row := rowIdx + 2
		values := []any{
			key, string(v.Sentiment), string(v.Strength), v.Confidence,
			v.ConfirmationsBuy, v.ConfirmationsSell,
			v.LatestClose, v.Risk.StopLong, v.Risk.TargetLong, v.Risk.StopShort, v.Risk.TargetShort,
			a.RanAt.Format(time.RFC3339),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			fx.SetCellValue(summary, cell, value)
		}
		sentimentCell, _ := excelize.CoordinatesToCellName(2, row)
		fx.SetCellStyle(summary, sentimentCell, sentimentCell, sentimentStyle(styles, v.Sentiment))

		if err := r.writeDetailSheet(fx, styles, key, a); err != nil {
			return err
		}
	}

	fx.SetColWidth(summary, "A", "A", 14)
	fx.SetColWidth(summary, "B", "L", 12)

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (r *ExcelReporter) writeDetailSheet(fx *excelize.File, styles excelStyles, key string, a *analyzer.Analysis) error {
	sheet := key
	if len(sheet) > 31 {
		sheet = sheet[:31] // sheet name limit
	}
	if _, err := fx.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	put := func(label string, value any) {
		labelCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		fx.SetCellValue(sheet, labelCell, label)
		fx.SetCellValue(sheet, valueCell, value)
		row++
	}

	v := a.Verdict
	put("Strategy", a.StrategyName)
	put("Sentiment", string(v.Sentiment))
	put("Strength", string(v.Strength))
	put("Confidence", v.Confidence)
	put("Completeness", a.Completeness)
	put("Bars", a.Bars)
	put("Interval", string(a.Request.Interval))
	put("Period", string(a.Request.Period))
	row++

	header, _ := excelize.CoordinatesToCellName(1, row)
	fx.SetCellValue(sheet, header, "Indicator Snapshot")
	fx.SetCellStyle(sheet, header, header, styles.header)
	row++

	names := make([]string, 0, len(v.Snapshot))
	for name := range v.Snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		put(name, v.Snapshot[name])
	}

	if len(v.Crossovers) > 0 {
		row++
		header, _ = excelize.CoordinatesToCellName(1, row)
		fx.SetCellValue(sheet, header, "Crossovers")
		fx.SetCellStyle(sheet, header, header, styles.header)
		row++
		for _, c := range v.Crossovers {
			put(c.Source, fmt.Sprintf("%s @ bar %d", c.Kind, c.BarIndex))
		}
	}

	fx.SetColWidth(sheet, "A", "A", 22)
	fx.SetColWidth(sheet, "B", "B", 24)
	return nil
}
