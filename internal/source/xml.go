package source

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
)

// XMLReader czyta eksport OLTP z katalogu: jeden plik na dzień,
// snapshot_YYYYMMDD.xml. Eksporty z ERP potrafią być w cp1250/latin2.
type XMLReader struct {
	dir     string
	charset string // wymuszone kodowanie, gdy plik go nie deklaruje
	log     zerolog.Logger
}

func NewXMLReader(dir, cs string, log zerolog.Logger) *XMLReader {
	return &XMLReader{dir: expandHome(dir), charset: cs, log: log}
}

type xmlUser struct {
	UserID   int64   `xml:"user_id"`
	Name     *string `xml:"name"` // brak elementu = NULL
	Email    *string `xml:"email"`
	JoinDate *string `xml:"join_date"`
}

type xmlProduct struct {
	ProductID int64  `xml:"product_id"`
	Name      string `xml:"name"`
	Category  string `xml:"category"`
	Price     string `xml:"price"` // bywa z przecinkiem
	Stock     string `xml:"stock"`
}

type xmlTransaction struct {
	TransactionID int64   `xml:"transaction_id"`
	Date          string  `xml:"date"`
	UserID        int64   `xml:"user_id"`
	ProductID     int64   `xml:"product_id"`
	Quantity      string  `xml:"quantity"`
	Price         string  `xml:"price"`
	PaymentType   *string `xml:"payment_type"`
	Status        *string `xml:"status"`
}

func FileName(day db.Date) string {
	return "snapshot_" + day.Format("20060102") + ".xml"
}

func (r *XMLReader) Read(ctx context.Context, day db.Date) (*Snapshot, error) {
	path := filepath.Join(r.dir, FileName(day))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, skipped, err := r.decode(ctx, bufio.NewReader(f), day)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	r.log.Info().
		Str("file", path).
		Str("source_date", day.String()).
		Int("users", len(snap.Users)).
		Int("products", len(snap.Products)).
		Int("transactions", len(snap.Transactions)).
		Int("transactions_other_day", skipped).
		Msg("XML snapshot read")
	return snap, nil
}

func (r *XMLReader) decode(ctx context.Context, in io.Reader, day db.Date) (*Snapshot, int, error) {
	var src io.Reader = in
	forced := r.charset != ""
	if forced {
		cr, err := charset.NewReaderLabel(normalizeCharset(r.charset), in)
		if err != nil {
			return nil, 0, err
		}
		src = cr
	}

	dec := xml.NewDecoder(src)
	dec.CharsetReader = func(cs string, in io.Reader) (io.Reader, error) {
		if forced {
			// już zdekodowane wyżej
			return in, nil
		}
		return charset.NewReaderLabel(normalizeCharset(cs), in)
	}

	snap := &Snapshot{}
	skipped := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch strings.ToLower(se.Name.Local) {
		case "user":
			var u xmlUser
			if err := dec.DecodeElement(&u, &se); err != nil {
				return nil, 0, err
			}
			snap.Users = append(snap.Users, User(u))

		case "product":
			var p xmlProduct
			if err := dec.DecodeElement(&p, &se); err != nil {
				return nil, 0, err
			}
			snap.Products = append(snap.Products, Product{
				ProductID: p.ProductID,
				Name:      strings.TrimSpace(p.Name),
				Category:  strings.TrimSpace(p.Category),
				Price:     f64(p.Price),
				Stock:     atoi(p.Stock),
			})

		case "transaction":
			var t xmlTransaction
			if err := dec.DecodeElement(&t, &se); err != nil {
				return nil, 0, err
			}
			// plik może zawierać zaległe transakcje, bierzemy tylko ten dzień
			if !MatchesDay(t.Date, day) {
				skipped++
				continue
			}
			snap.Transactions = append(snap.Transactions, Transaction{
				TransactionID: t.TransactionID,
				Date:          t.Date,
				UserID:        t.UserID,
				ProductID:     t.ProductID,
				Quantity:      atoi(t.Quantity),
				Total:         f64(t.Price),
				PaymentType:   t.PaymentType,
				Status:        t.Status,
			})

			if len(snap.Transactions)%1000 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, 0, err
				}
			}
		}
	}
	return snap, skipped, nil
}

func (r *XMLReader) Close() error { return nil }

func openXML(c conf.DBConfig, log zerolog.Logger) (Reader, error) {
	st, err := os.Stat(expandHome(c.DSN))
	if err != nil {
		return nil, fmt.Errorf("xml source dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("xml source %q is not a directory", c.DSN)
	}
	return NewXMLReader(c.DSN, c.Charset, log), nil
}

func init() {
	Register(conf.DriverXML, openXML)
}

// normalizeCharset mapuje nietypowe etykiety na standardowe nazwy rozpoznawane przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	default:
		return c
	}
}

func f64(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// zamień ewentualny przecinek na kropkę
	s = strings.ReplaceAll(s, ",", ".")
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func atoi(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
