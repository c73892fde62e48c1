// atcat is a field-commissioning console: it opens the configured modem
// serial port, forwards stdin lines as AT commands, and prints everything
// the modem sends back. Ctrl+C exits.
//
// Usage:
//
//	atcat [-device /dev/ttyUSB0] [-baud 9600]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/modem"
)

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "modem serial device")
	baud := flag.Int("baud", 9600, "baud rate")
	flag.Parse()

	port, err := modem.Open(*device, *baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atcat: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	fmt.Printf("connected to %s at %d baud; type AT commands, Ctrl+C to exit\n", *device, *baud)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Reader: dump everything the modem emits.
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "atcat: read: %v\n", err)
				return
			}
		}
	}()

	// Writer: forward stdin lines with the AT line terminator.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if _, err := port.Write([]byte(line + "\r\n")); err != nil {
				fmt.Fprintf(os.Stderr, "atcat: write: %v\n", err)
				return
			}
		}
	}()

	<-sigs
	fmt.Println("\nbye")
}
