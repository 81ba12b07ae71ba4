// Command beedbd is the gRPC front end for the core engine: one listener
// accepting unary Exec/Query calls, each served on its own goroutine
// against a shared *engine.Database.
//
// What/How: grounded on _teacher_orig/cmd/server/main.go's hand-rolled
// grpc.ServiceDesc plus a JSON codec registered via
// encoding.RegisterCodec, so the service is reachable without a .proto
// compile step. This binary drops the HTTP/federation surface that file
// also carries (out of scope here) and keeps only the gRPC path, since
// demonstrating one-thread-per-client concurrency against the core
// engine is the point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net"
	"time"

	"github.com/beedb-project/beedb/config"
	"github.com/beedb-project/beedb/internal/bdlog"
	"github.com/beedb-project/beedb/internal/engine"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

var (
	flagDB   = flag.String("db", "beedb.db", "Path to the database file")
	flagGRPC = flag.String("grpc", ":9090", "gRPC listen address")
)

// ExecRequest/ExecResponse and QueryRequest/QueryResponse are the wire
// shapes the JSON codec marshals directly; no protobuf message types are
// generated or needed.
type ExecRequest struct {
	SQL string `json:"sql"`
}

type ExecResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

type QueryResponse struct {
	Columns  []string `json:"columns,omitempty"`
	Rows     [][]any  `json:"rows,omitempty"`
	Error    string   `json:"error,omitempty"`
	Duration string   `json:"duration"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)       { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error  { return json.Unmarshal(data, v) }

// BeeDBServer is the gRPC-visible surface: two unary RPCs, each opening
// its own transaction for the call's duration via a fresh autocommit
// engine.Session.
type BeeDBServer interface {
	Exec(context.Context, *ExecRequest) (*ExecResponse, error)
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
}

func registerBeeDBServer(s *grpc.Server, srv BeeDBServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "beedb.BeeDB",
		HandlerType: (*BeeDBServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Exec", Handler: execHandler},
			{MethodName: "Query", Handler: queryHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "beedb",
	}, srv)
}

func execHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BeeDBServer).Exec(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/beedb.BeeDB/Exec"}
	handler := func(ctx context.Context, req any) (any, error) { return srv.(BeeDBServer).Exec(ctx, req.(*ExecRequest)) }
	return interceptor(ctx, in, info, handler)
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BeeDBServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/beedb.BeeDB/Query"}
	handler := func(ctx context.Context, req any) (any, error) { return srv.(BeeDBServer).Query(ctx, req.(*QueryRequest)) }
	return interceptor(ctx, in, info, handler)
}

// server holds the one shared *engine.Database every client goroutine
// calls into; the database's own buffer-pool latch and the transaction
// manager's striped latches are the only synchronization points, so
// this type itself carries no locks of its own.
type server struct {
	db *engine.Database
}

func (s *server) Exec(ctx context.Context, req *ExecRequest) (*ExecResponse, error) {
	sess := s.db.NewSession()
	if _, err := sess.Exec(req.SQL); err != nil {
		return &ExecResponse{Success: false, Error: err.Error()}, nil
	}
	return &ExecResponse{Success: true}, nil
}

func (s *server) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()
	sess := s.db.NewSession()
	res, err := sess.Exec(req.SQL)
	if err != nil {
		return &QueryResponse{Error: err.Error(), Duration: time.Since(start).String()}, nil
	}
	return &QueryResponse{Columns: res.Columns, Rows: res.Rows, Duration: time.Since(start).String()}, nil
}

func main() {
	flag.Parse()
	bdlog.Init(bdlog.Config{Level: bdlog.InfoLevel})

	db, err := engine.Open(*flagDB, config.Default())
	if err != nil {
		bdlog.Logger.Fatal().Err(err).Str("db", *flagDB).Msg("open database")
	}
	defer db.Close()

	encoding.RegisterCodec(jsonCodec{})

	lis, err := net.Listen("tcp", *flagGRPC)
	if err != nil {
		bdlog.Logger.Fatal().Err(err).Str("addr", *flagGRPC).Msg("listen")
	}

	gs := grpc.NewServer()
	registerBeeDBServer(gs, &server{db: db})
	bdlog.Logger.Info().Str("addr", *flagGRPC).Msg("beedbd listening")
	if err := gs.Serve(lis); err != nil {
		bdlog.Logger.Fatal().Err(err).Msg("serve")
	}
}
