package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"pupil-overlay-go/internal/output"
)

func main() {
	var (
		path   = flag.String("path", "", "Path to a raw IPC log")
		prefix = flag.String("topic", "", "Only dump records whose topic has this prefix")
		limit  = flag.Int("limit", 1, "Number of records to dump (0 dumps all)")
	)
	flag.Parse()

	if *path == "" {
		log.Fatal("path is required")
	}

	reader, err := output.OpenRawLog(*path)
	if err != nil {
		log.Fatalf("open raw log: %v", err)
	}
	defer reader.Close()

	count := 0
	record := 0
	for {
		if *limit > 0 && count >= *limit {
			return
		}
		rec, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatalf("read record: %v", err)
		}
		record++

		topic, parts, err := output.UnpackMessage(rec.Payload)
		if err != nil {
			log.Printf("record %d: envelope decode error: %v", record, err)
			continue
		}
		if *prefix != "" && !strings.HasPrefix(topic, *prefix) {
			continue
		}

		sizes := make([]int, len(parts))
		for i, part := range parts {
			sizes[i] = len(part)
		}
		log.Printf("record %d topic=%s timestamp=%s part_sizes=%v",
			record, topic, rec.Timestamp.Format(time.RFC3339Nano), sizes)

		if len(parts) == 0 {
			count++
			continue
		}
		var decoded any
		if err := cbor.Unmarshal(parts[0], &decoded); err != nil {
			log.Printf("record %d: CBOR decode error: %v", record, err)
			continue
		}
		normalized := output.NormalizeJSONValue(decoded)
		pretty, err := json.MarshalIndent(normalized, "", "  ")
		if err != nil {
			log.Printf("record %d: JSON encode error: %v", record, err)
			continue
		}
		fmt.Println(string(pretty))
		count++
	}
}
