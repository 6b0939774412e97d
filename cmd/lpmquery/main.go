// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

// lpmquery loads a prefix file and reports the longest-prefix-match
// next-hop for a query address, using whichever lpmtable algorithm the
// caller picks.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/netforge/lpmtable"
)

func main() {
	log.SetFlags(log.Lmicroseconds)

	routesFile := flag.String("routes", "", "path to a routes file: one \"prefix nexthop\" pair per line")
	query := flag.String("addr", "", "address to look up")
	algorithm := flag.String("algo", "dir24", "algorithm: dir24, wide16, or stride8")
	flag.Parse()

	if *routesFile == "" || *query == "" {
		fmt.Fprintln(os.Stderr, "usage: lpmquery -routes <file> -addr <ip> [-algo dir24|wide16|stride8]")
		os.Exit(2)
	}

	addr, err := netip.ParseAddr(*query)
	if err != nil {
		log.Fatalf("parse query address: %v", err)
	}

	routes, err := loadRoutes(*routesFile)
	if err != nil {
		log.Fatalf("load routes: %v", err)
	}

	table, err := buildTable(*algorithm, addr.Is4())
	if err != nil {
		log.Fatalf("build table: %v", err)
	}

	ts := time.Now()
	for _, r := range routes {
		if err := table.Insert(r.pfx, r.hop); err != nil {
			log.Fatalf("insert %s: %v", r.pfx, err)
		}
	}
	log.Printf("inserted %d routes in %v", len(routes), time.Since(ts))

	hop := table.Lookup(addr)
	if hop == lpmtable.InvalidNextHop {
		fmt.Printf("%s: no route\n", addr)
		return
	}
	fmt.Printf("%s: next-hop %d\n", addr, hop)

	stats := table.Stats()
	log.Printf("stats: algorithm=%s family=%s prefixes=%d nodes=%d",
		stats.Algorithm, stats.Family, stats.PrefixCount, stats.NodeCount)
}

// lpmTable is the subset of the three concrete table types this CLI
// needs; no generic cross-algorithm dispatch shim lives in the library
// itself (out of scope per the specification), so the CLI defines its
// own narrow local interface purely to avoid three copies of main's body.
type lpmTable interface {
	Insert(netip.Prefix, uint32) error
	Lookup(netip.Addr) uint32
	Stats() lpmtable.Stats
}

func buildTable(algorithm string, is4 bool) (lpmTable, error) {
	switch algorithm {
	case "dir24":
		if !is4 {
			return nil, fmt.Errorf("dir24 only supports IPv4 queries")
		}
		return lpmtable.NewDir24Table(), nil
	case "wide16":
		if is4 {
			return nil, fmt.Errorf("wide16 only supports IPv6 queries")
		}
		return lpmtable.NewWide16Table(), nil
	case "stride8":
		if is4 {
			return lpmtable.NewStride8IPv4(), nil
		}
		return lpmtable.NewStride8IPv6(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}
}

type route struct {
	pfx netip.Prefix
	hop uint32
}

func loadRoutes(path string) ([]route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var routes []route
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		pfx, err := netip.ParsePrefix(fields[0])
		if err != nil {
			return nil, fmt.Errorf("parse prefix %q: %w", fields[0], err)
		}
		hop, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse next-hop %q: %w", fields[1], err)
		}
		routes = append(routes, route{pfx: pfx, hop: uint32(hop)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}
