// Command fcgiecho is a minimal FastCGI Responder: it listens on a TCP
// address and answers each request with a short CGI header block followed
// by a body listing the request's Params (one "NAME: value" line each,
// sorted by name) and then its Stdin, the way a smoke-test backend for a
// web server's FastCGI proxy would. It exists to exercise the server
// package end-to-end, in the spirit of the reference repo's own
// bare net/http handler in main.go.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"sort"

	"github.com/fcgicore/fastcgi/server"
	"github.com/sirupsen/logrus"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "address to listen on")
	flag.Parse()

	logger := logrus.New()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("fcgiecho: listen: %v", err)
	}
	defer ln.Close()

	srv := server.New(server.HandlerFunc(echo))
	logger.WithField("addr", *addr).Info("fcgiecho: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.WithError(err).Error("fcgiecho: accept")
			return
		}

		go func() {
			defer conn.Close()
			if err := srv.ServeConn(conn); err != nil {
				logger.WithError(err).Warn("fcgiecho: connection ended")
			}
		}()
	}
}

func echo(w server.ResponseWriter, r *server.Request) {
	names := make([]string, 0, len(r.Params))
	for name := range r.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "Status: 200 OK\r\nContent-Type: text/plain\r\n\r\n")
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, r.Params[name])
	}
	if len(r.Stdin) > 0 {
		fmt.Fprintf(w, "\n%s", r.Stdin)
	}
}
