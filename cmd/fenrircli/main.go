// Command fenrircli is a line-oriented client for fenrird's TCP order-entry
// protocol, adapted from the teacher's cmd/client/client.go to the
// length-prefixed decimal-string wire format and opaque asset identifiers.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	fenrirNet "ferrum/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the fenrird order-entry port")
	owner := flag.String("owner", "", "owner username (required)")
	action := flag.String("action", "place", "action to perform: place, cancel, log")
	asset := flag.String("asset", "BTC-USD", "opaque asset identifier")
	sideStr := flag.String("side", "bid", "order side: bid or ask")
	price := flag.String("price", "100.00", "limit price, as a decimal string")
	qtyStr := flag.String("qty", "10", "size, or a comma-separated list (e.g. 10,20,50)")
	orderID := flag.String("id", "", "order id to cancel (required for -action cancel)")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is required.")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s as %q\n", *serverAddr, *owner)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		for _, qty := range parseQuantities(*qtyStr) {
			if err := sendPlaceOrder(conn, *asset, *owner, *sideStr, *price, qty); err != nil {
				log.Printf("failed to place order (qty %s): %v", qty, err)
				continue
			}
			fmt.Printf("-> sent %s order: %s %s @ %s\n", strings.ToUpper(*sideStr), *asset, qty, *price)
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -id is required for -action cancel")
		}
		id, err := uuid.Parse(*orderID)
		if err != nil {
			log.Fatalf("invalid -id: %v", err)
		}
		if err := sendCancelOrder(conn, *asset, *owner, id); err != nil {
			log.Printf("failed to send cancel: %v", err)
		} else {
			fmt.Printf("-> sent cancel for %s\n", id)
		}

	case "log":
		if err := sendLog(conn, *asset); err != nil {
			log.Printf("failed to send log request: %v", err)
		} else {
			fmt.Println("-> sent log request")
		}

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (ctrl-c to exit)")
	select {}
}

func parseQuantities(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sendPlaceOrder(conn net.Conn, asset, owner, side, price, qty string) error {
	dir, err := fenrirNet.ParseDirection(side)
	if err != nil {
		return err
	}
	msg := fenrirNet.NewOrderMessage{
		Asset:     asset,
		Direction: dir,
		Price:     price,
		Size:      qty,
		Username:  owner,
	}
	_, err = conn.Write(msg.Serialize())
	return err
}

func sendCancelOrder(conn net.Conn, asset, owner string, id uuid.UUID) error {
	msg := fenrirNet.CancelOrderMessage{Asset: asset, OrderID: id, Username: owner}
	_, err := conn.Write(msg.Serialize())
	return err
}

func sendLog(conn net.Conn, asset string) error {
	msg := fenrirNet.LogBookMessage{Asset: asset}
	_, err := conn.Write(msg.Serialize())
	return err
}

func readReports(conn net.Conn) {
	typeBuf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(conn, typeBuf); err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		reportType := fenrirNet.ReportMessageType(typeBuf[0])

		asset, err := readString(conn)
		if err != nil {
			log.Printf("error reading report asset: %v", err)
			return
		}

		// Every branch below must consume exactly the body EncodeEvent wrote
		// for this ReportMessageType (reports.go), or the next iteration's
		// type byte is read from the middle of this report and every report
		// after it misparses.
		switch reportType {
		case fenrirNet.ReportOpened:
			id, parent, owner, err := readIDParentOwner(conn)
			if err != nil {
				log.Printf("error reading opened report: %v", err)
				return
			}
			var directionBuf [1]byte
			if _, err := io.ReadFull(conn, directionBuf[:]); err != nil {
				log.Printf("error reading opened report direction: %v", err)
				return
			}
			price, err := readString(conn)
			if err != nil {
				log.Printf("error reading opened report price: %v", err)
				return
			}
			size, err := readString(conn)
			if err != nil {
				log.Printf("error reading opened report size: %v", err)
				return
			}
			ts, err := readTimestamp(conn)
			if err != nil {
				log.Printf("error reading opened report timestamp: %v", err)
				return
			}
			fmt.Printf("\n[OPENED asset=%s id=%s parent=%s owner=%s direction=%d price=%s size=%s ts=%d]\n",
				asset, id, parentString(parent), owner, directionBuf[0], price, size, ts)

		case fenrirNet.ReportFilled:
			id, parent, owner, err := readIDParentOwner(conn)
			if err != nil {
				log.Printf("error reading filled report: %v", err)
				return
			}
			price, err := readString(conn)
			if err != nil {
				log.Printf("error reading filled report price: %v", err)
				return
			}
			size, err := readString(conn)
			if err != nil {
				log.Printf("error reading filled report size: %v", err)
				return
			}
			ts, err := readTimestamp(conn)
			if err != nil {
				log.Printf("error reading filled report timestamp: %v", err)
				return
			}
			fmt.Printf("\n[FILLED asset=%s id=%s parent=%s owner=%s price=%s size=%s ts=%d]\n",
				asset, id, parentString(parent), owner, price, size, ts)

		case fenrirNet.ReportCanceled:
			id, parent, owner, err := readIDParentOwner(conn)
			if err != nil {
				log.Printf("error reading canceled report: %v", err)
				return
			}
			ts, err := readTimestamp(conn)
			if err != nil {
				log.Printf("error reading canceled report timestamp: %v", err)
				return
			}
			fmt.Printf("\n[CANCELED asset=%s id=%s parent=%s owner=%s ts=%d]\n",
				asset, id, parentString(parent), owner, ts)

		case fenrirNet.ReportBounce:
			id, err := readOptionalUUID(conn)
			if err != nil {
				log.Printf("error reading bounce report id: %v", err)
				return
			}
			owner, err := readUUID(conn)
			if err != nil {
				log.Printf("error reading bounce report owner: %v", err)
				return
			}
			reason, err := readString(conn)
			if err != nil {
				log.Printf("error reading bounce report reason: %v", err)
				return
			}
			ts, err := readTimestamp(conn)
			if err != nil {
				log.Printf("error reading bounce report timestamp: %v", err)
				return
			}
			fmt.Printf("\n[BOUNCE asset=%s id=%s owner=%s reason=%s ts=%d]\n",
				asset, parentString(id), owner, reason, ts)

		case fenrirNet.ReportError:
			msg, err := readString(conn)
			if err != nil {
				log.Printf("error reading error report body: %v", err)
				return
			}
			fmt.Printf("\n[SERVER ERROR] asset=%s: %s\n", asset, msg)

		default:
			log.Printf("unknown report type %d from server, closing", reportType)
			return
		}
	}
}

// readIDParentOwner reads the id, optional parent, and owner fields common
// to OpenedEvent, FilledEvent, and CanceledEvent reports.
func readIDParentOwner(conn net.Conn) (id uuid.UUID, parent *uuid.UUID, owner uuid.UUID, err error) {
	if id, err = readUUID(conn); err != nil {
		return
	}
	if parent, err = readOptionalUUID(conn); err != nil {
		return
	}
	owner, err = readUUID(conn)
	return
}

func readUUID(conn net.Conn) (uuid.UUID, error) {
	var buf [16]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.UUID(buf), nil
}

// readOptionalUUID reads the 1-byte presence flag EncodeEvent's
// appendOptionalUUID writes, followed by 16 more bytes only if it was set.
func readOptionalUUID(conn net.Conn) (*uuid.UUID, error) {
	var flag [1]byte
	if _, err := io.ReadFull(conn, flag[:]); err != nil {
		return nil, err
	}
	if flag[0] == 0 {
		return nil, nil
	}
	id, err := readUUID(conn)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func readTimestamp(conn net.Conn) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func parentString(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

// readString reads one uint16-length-prefixed string, matching the wire
// format internal/net uses for every variable field.
func readString(conn net.Conn) (string, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf)
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
