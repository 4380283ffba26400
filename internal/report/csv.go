package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"arb-indexer-sol/internal/logic/core"
)

// csvHeader 与下游分析脚本约定的列名，顺序固定。
var csvHeader = []string{"signature", "beneficiary", "mint", "amount"}

// WriteCSV 将记录按产出顺序写入 w，首行为表头。
func WriteCSV(w io.Writer, records []*core.ArbitrageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Signature,
			r.Beneficiary.String(),
			r.Token.String(),
			r.Amount.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile 写入指定路径，文件存在时覆盖。
func WriteCSVFile(path string, records []*core.ArbitrageRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return err
	}
	return f.Sync()
}
