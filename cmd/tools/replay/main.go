package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxtrader/internal/recorder"
	"fxtrader/internal/schema"
	"fxtrader/internal/state"
)

func main() {
	dir := flag.String("dir", "wal", "WAL directory")
	prefix := flag.String("prefix", "", "WAL file prefix (default: wal)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecv := flag.Bool("use-recv-time", false, "Use receive timestamp for pacing")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Decode known payload types")
	ordersOnly := flag.Bool("orders", false, "Only print order records")
	snapshot := flag.String("verify-snapshot", "", "Compare the rebuilt net positions with a trader snapshot")
	flag.Parse()

	cfg := recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		UseRecvTime:     *useRecv,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	if *ordersOnly {
		cfg.Types = []schema.EventType{schema.EventOrder}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	positions := state.NewNetPositions()
	counts := make(map[schema.EventType]int)
	var (
		index   int
		lastSeq uint64
	)
	err := recorder.Play(ctx, cfg, func(header schema.EventHeader, payload []byte) error {
		index++
		counts[header.Type]++
		lastSeq = header.Seq
		fmt.Printf("%06d seq=%d type=%s trace=%d ts_event=%d ts_recv=%d len=%d\n",
			index, header.Seq, header.Type, header.TraceID, header.TsEvent, header.TsRecv, len(payload))

		e, ok := recorder.Decode(header, payload)
		if !ok {
			if *decode {
				fmt.Printf("  decode %s failed\n", header.Type)
			}
			return nil
		}
		if order, ok := e.(schema.Order); ok {
			net := positions.ApplyOrder(order)
			if *decode {
				fmt.Printf("  %s net=%d\n", order, net)
			}
			return nil
		}
		if *decode {
			fmt.Printf("  %s\n", e)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}

	fmt.Printf("records=%d ticks=%d signals=%d orders=%d last_seq=%d\n",
		index, counts[schema.EventTick], counts[schema.EventSignal], counts[schema.EventOrder], lastSeq)
	for _, i := range positions.Instruments() {
		fmt.Printf("  %s units=%d\n", i, positions.Units(i))
	}

	if *snapshot != "" {
		expected, err := state.ReadSnapshot(*snapshot)
		if err != nil {
			log.Fatalf("read snapshot failed: %v", err)
		}
		if err := state.CompareSnapshots(expected, positions.Snapshot(time.Unix(0, expected.Timestamp), lastSeq)); err != nil {
			log.Fatalf("snapshot mismatch: %v", err)
		}
		fmt.Printf("snapshot verified: positions=%d\n", positions.Count())
	}
}
