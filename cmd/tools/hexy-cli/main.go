package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/annel0/hexy-web/internal/config"
	"github.com/annel0/hexy-web/internal/hexy"
	"github.com/annel0/hexy-web/internal/render"
)

const defaultServerAddr = "http://localhost:8088"

func main() {
	var (
		command    = flag.String("cmd", "count", "Command: count, layout, html, stats")
		size       = flag.Uint("size", 4, "Board size (hexes per edge)")
		serverAddr = flag.String("server", defaultServerAddr, "hexy-web base URL for the stats command")
		pieces     = flag.String("pieces", "", `Pieces for the html command: "x,y,team,value;..." in hex coordinates`)
	)
	flag.Parse()

	var err error
	switch *command {
	case "count":
		err = showCount(os.Stdout, *size)
	case "layout":
		err = showLayout(os.Stdout, *size)
	case "html":
		var placed []placedPiece
		if placed, err = parsePieces(*pieces); err == nil {
			err = writeHTML(os.Stdout, *size, placed...)
		}
	case "stats":
		err = showStats(os.Stdout, *serverAddr)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		fmt.Println("Available commands: count, layout, html, stats")
		fmt.Println("Example: hexy-cli -cmd html -size 4 -pieces \"2,1,0,5;4,4,1,0\"")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

// showCount выводит число строк и гексов для размеров 1..size
func showCount(w io.Writer, size uint) error {
	if size == 0 {
		return hexy.ErrInvalidSize
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tROWS\tHEXES")
	for s := uint(1); s <= size; s++ {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", s, hexy.RowCount(s), hexy.HexCount(s))
	}
	return tw.Flush()
}

// showLayout печатает HexID каждой клетки построчно, как в хранилище доски
func showLayout(w io.Writer, size uint) error {
	board, err := hexy.NewBoard(size)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "⬢ Board size %d: %d rows, %d hexes\n", board.Size(), board.RowCount(), board.Len())
	for y, row := range board.Rows() {
		ids := make([]string, 0, len(row))
		for _, h := range row {
			ids = append(ids, h.HexID.String())
		}
		fmt.Fprintf(w, "%3d | %s\n", y, strings.Join(ids, " "))
	}
	return nil
}

// placedPiece: фишка на клетке с координатами гекса
type placedPiece struct {
	at    hexy.HexID
	piece hexy.Piece
}

// parsePieces разбирает список вида "x,y,team,value;x,y,team,value"
func parsePieces(raw string) ([]placedPiece, error) {
	var placed []placedPiece
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fields := strings.Split(item, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("piece %q: expected x,y,team,value", item)
		}
		var nums [4]uint
		for i, f := range fields {
			n, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("piece %q: %w", item, err)
			}
			nums[i] = uint(n)
		}
		placed = append(placed, placedPiece{
			at:    hexy.HexID{X: nums[0], Y: nums[1]},
			piece: hexy.Piece{Team: nums[2], Value: nums[3]},
		})
	}
	return placed, nil
}

// writeHTML отрисовывает доску с палитрой по умолчанию и расставленными фишками
func writeHTML(w io.Writer, size uint, pieces ...placedPiece) error {
	board, err := hexy.NewBoard(size)
	if err != nil {
		return err
	}
	for _, p := range pieces {
		if board, err = board.WithState(p.at, p.piece); err != nil {
			return err
		}
	}

	renderer, err := render.New(render.Options{
		Palette:    config.DefaultPalette,
		EmptyGlyph: config.DefaultEmptyGlyph,
	})
	if err != nil {
		return err
	}
	if err := renderer.WriteBoard(w, board); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// showStats запрашивает /api/stats у запущенного сервера
func showStats(w io.Writer, serverAddr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(serverAddr, "/") + "/api/stats")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}

	fmt.Fprintln(w, "📊 Server statistics")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(body["data"])
}
