// Package export 导出标签体系
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

// SheetName 导出工作表名称
const SheetName = "Taxonomy"

// TaxonomyHeader 导出表头
var TaxonomyHeader = []string{"Code", "Name", "Depth", "Namespace", "Discipline", "Path"}

var columnWidths = []float64{14, 40, 8, 14, 14, 80}

// Row 一行导出数据
type Row struct {
	Code       string
	Name       string
	Depth      int
	Namespace  model.Namespace
	Discipline string
	Path       string
}

// Rows 按先序遍历把森林展开为行，disciplines 为学科 ID 到编码的映射
func Rows(tree []*taxonomy.TreeNode, disciplines map[string]string, sep string) []Row {
	var rows []Row
	taxonomy.Walk(tree, func(n *taxonomy.TreeNode, path []string) {
		row := Row{
			Code:      n.Code,
			Name:      n.Name,
			Depth:     n.Depth,
			Namespace: model.NamespaceOfCode(n.Code),
			Path:      strings.Join(path, sep),
		}
		if n.DisciplineID != nil {
			row.Discipline = disciplines[*n.DisciplineID]
		}
		rows = append(rows, row)
	})
	return rows
}

// DisciplineCodes 学科 ID 到编码的映射
func DisciplineCodes(items []*model.Discipline) map[string]string {
	codes := make(map[string]string, len(items))
	for _, d := range items {
		codes[d.ID] = d.Code
	}
	return codes
}

// GenerateTaxonomyExcel 生成标签体系 Excel 文件
func GenerateTaxonomyExcel(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTaxonomyExcel(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTaxonomyExcel 将标签体系写入 w
func WriteTaxonomyExcel(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(TaxonomyHeader))
	for i, h := range TaxonomyHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(TaxonomyHeader), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 从第2行开始写数据
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := []interface{}{r.Code, r.Name, r.Depth, string(r.Namespace), r.Discipline, r.Path}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
