package kifu

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"shogirule/pkg/shogi"
)

type PlyRecord struct {
	Ply      int32  `parquet:"name=ply, type=INT32"`
	Move     string `parquet:"name=move, type=BYTE_ARRAY, convertedtype=UTF8"`
	Captured string `parquet:"name=captured, type=BYTE_ARRAY, convertedtype=UTF8"`
	Check    bool   `parquet:"name=check, type=BOOLEAN"`
}

// GameRecord is one replayed game as stored in parquet.
type GameRecord struct {
	GameID      string      `parquet:"name=game_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SenteName   string      `parquet:"name=sente_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	SenteRating int32       `parquet:"name=sente_rating, type=INT32"`
	GoteName    string      `parquet:"name=gote_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	GoteRating  int32       `parquet:"name=gote_rating, type=INT32"`
	Result      string      `parquet:"name=result, type=BYTE_ARRAY, convertedtype=UTF8"`
	WinReason   string      `parquet:"name=win_reason, type=BYTE_ARRAY, convertedtype=UTF8"`
	MoveCount   int32       `parquet:"name=move_count, type=INT32"`
	RuleOutcome string      `parquet:"name=rule_outcome, type=BYTE_ARRAY, convertedtype=UTF8"`
	IllegalPly  int32       `parquet:"name=illegal_ply, type=INT32"`
	IllegalKind string      `parquet:"name=illegal_kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Consistent  bool        `parquet:"name=consistent, type=BOOLEAN"`
	StartSFEN   string      `parquet:"name=start_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
	FinalSFEN   string      `parquet:"name=final_sfen, type=BYTE_ARRAY, convertedtype=UTF8"`
	FinalHash   int64       `parquet:"name=final_hash, type=INT64"`
	Plies       []PlyRecord `parquet:"name=plies, type=LIST"`
}

// NewGameRecord flattens a replay for storage.
func NewGameRecord(gameID string, b *Board, res ReplayResult) GameRecord {
	players := b.Players()
	result, reason := b.Result()
	plies := make([]PlyRecord, 0, len(res.Plies))
	for i, p := range res.Plies {
		plies = append(plies, PlyRecord{
			Ply:      int32(i + 1),
			Move:     p.Move.String(),
			Captured: p.Captured.String(),
			Check:    p.Check,
		})
	}
	record := GameRecord{
		GameID:      gameID,
		SenteName:   players.SenteName,
		SenteRating: players.SenteRating,
		GoteName:    players.GoteName,
		GoteRating:  players.GoteRating,
		Result:      result,
		WinReason:   reason,
		MoveCount:   int32(b.MoveCount()),
		RuleOutcome: string(res.Outcome),
		IllegalPly:  int32(res.IllegalPly),
		Consistent:  res.Consistent,
		StartSFEN:   b.InitialPosition().SFEN(),
		FinalSFEN:   res.Final.SFEN(),
		FinalHash:   int64(res.MainHash),
		Plies:       plies,
	}
	if res.IllegalErr != nil {
		record.IllegalKind = illegalKind(res.IllegalErr)
	}
	return record
}

func illegalKind(err error) string {
	var me *shogi.MoveError
	if errors.As(err, &me) && me.Err != nil {
		return me.Err.Error()
	}
	return err.Error()
}

type ParquetSchema struct {
	Name   string         `json:"name"`
	Fields []ParquetField `json:"fields"`
}

type ParquetField struct {
	Name     string      `json:"name"`
	Type     interface{} `json:"type"`
	Nullable bool        `json:"nullable"`
}

//go:embed schema/parquet_schema.json
var schemaJSON []byte

// WriteParquet drains records into a snappy-compressed parquet file.
func WriteParquet(path string, records <-chan GameRecord, parallel int64) error {
	fmt.Fprintf(os.Stderr, "writing parquet to %s\n", path)

	schema, err := loadParquetSchema(schemaJSON)
	if err != nil {
		return err
	}
	if err := validateSchema(schema, GameRecord{}); err != nil {
		return err
	}

	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	defer fileWriter.Close()

	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(GameRecord), parallel)
	if err != nil {
		return err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY

	for record := range records {
		if err := parquetWriter.Write(record); err != nil {
			return err
		}
	}
	if err := parquetWriter.WriteStop(); err != nil {
		return err
	}
	return fileWriter.Close()
}

func ReadParquet(path string, parallel int64) ([]GameRecord, error) {
	absPath := path
	if !filepath.IsAbs(path) {
		if resolved, err := filepath.Abs(path); err == nil {
			absPath = resolved
		}
	}
	fileReader, err := local.NewLocalFileReader(absPath)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(GameRecord), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]GameRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		if remain := num - offset; remain < batchSize {
			batchSize = remain
		}
		batch := make([]GameRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

func loadParquetSchema(data []byte) (ParquetSchema, error) {
	var schema ParquetSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return ParquetSchema{}, err
	}
	return schema, nil
}

func validateSchema(schema ParquetSchema, sample any) error {
	schemaFields := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		schemaFields[field.Name] = struct{}{}
	}
	structFields := structParquetFieldNames(sample)
	missing := diffKeys(schemaFields, structFields)
	extra := diffKeys(structFields, schemaFields)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("parquet schema mismatch: missing=%v extra=%v", missing, extra)
	}
	return nil
}

func structParquetFieldNames(sample any) map[string]struct{} {
	fields := map[string]struct{}{}
	v := reflect.TypeOf(sample)
	for i := 0; i < v.NumField(); i++ {
		name := parseParquetName(v.Field(i).Tag.Get("parquet"))
		if name != "" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

func parseParquetName(tag string) string {
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "name" {
			return kv[1]
		}
	}
	return ""
}

func diffKeys(a, b map[string]struct{}) []string {
	var diff []string
	for key := range a {
		if _, ok := b[key]; !ok {
			diff = append(diff, key)
		}
	}
	return diff
}
