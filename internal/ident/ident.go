// Package ident implements an Identification Protocol client, as per
// RFC 1413.
package ident

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

const dialTimeout = 10 * time.Second

// Verify asks the ident service on the client's host who owns the client
// side of the connection and compares the answer with the claimed
// username. Any network or protocol failure counts as a mismatch.
func Verify(clientHost string, clientPort, serverPort int, username string) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(clientHost, "113"), dialTimeout)
	if err != nil {
		log.Printf("[IDENT] Cannot reach ident on %s: %v", clientHost, err)
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	if _, err := fmt.Fprintf(conn, "%d, %d\r\n", clientPort, serverPort); err != nil {
		log.Printf("[IDENT] Cannot query ident on %s: %v", clientHost, err)
		return false
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		log.Printf("[IDENT] Cannot read ident reply from %s: %v", clientHost, err)
		return false
	}

	owner, ok := ParseReply(reply)
	if !ok {
		return false
	}
	return strings.EqualFold(owner, username)
}

// ParseReply extracts the user id from an ident response. The expected
// format is "clientport, serverport : USERID : UNIX : username"; anything
// else, including ERROR responses, yields ok false.
func ParseReply(reply string) (string, bool) {
	reply = strings.TrimRight(reply, "\r\n")

	// ports : USERID : opsys : user
	fields := strings.SplitN(reply, ":", 4)
	if len(fields) != 4 {
		return "", false
	}
	if !strings.EqualFold(strings.TrimSpace(fields[1]), "USERID") {
		return "", false
	}
	user := strings.TrimLeft(fields[3], " ")
	if user == "" {
		return "", false
	}
	return user, true
}
