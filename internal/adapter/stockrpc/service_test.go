package stockrpc

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type debitOnlyServer struct {
	UnimplementedStockTransferServer
	last *DebitRequest
}

func (s *debitOnlyServer) Debit(ctx context.Context, req *DebitRequest) (*DebitResponse, error) {
	s.last = req
	if req.Quantity > 10 {
		return &DebitResponse{Status: DebitStatusInsufficient}, nil
	}
	return &DebitResponse{Status: DebitStatusApplied, Remaining: 10 - req.Quantity}, nil
}

func dial(t *testing.T, srv StockTransferServer) *StockTransferClient {
	lis := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer()
	RegisterStockTransferServer(server, srv)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStockTransferClient(conn)
}

func TestStockTransfer_DebitRoundTrip(t *testing.T) {
	srv := &debitOnlyServer{}
	client := dial(t, srv)

	resp, err := client.Debit(context.Background(), &DebitRequest{TransferID: "t-1", SKU: "HW-101", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, DebitStatusApplied, resp.Status)
	assert.Equal(t, 6, resp.Remaining)
	assert.Equal(t, domain.TransferRequest{TransferID: "t-1", SKU: "HW-101", Quantity: 4}, srv.last.Transfer())

	resp, err = client.Debit(context.Background(), &DebitRequest{TransferID: "t-2", SKU: "HW-101", Quantity: 40})
	require.NoError(t, err)
	assert.Equal(t, DebitStatusInsufficient, resp.Status)
}

func TestStockTransfer_Unimplemented(t *testing.T) {
	client := dial(t, &debitOnlyServer{})

	_, err := client.Credit(context.Background(), &CreditRequest{SKU: "HW-101", Quantity: 1, Price: decimal.NewFromInt(8)})
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = client.CheckAvailability(context.Background(), &AvailabilityRequest{SKU: "HW-101", Quantity: 1})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestCreditRequest_Credit(t *testing.T) {
	req := &CreditRequest{TransferID: "t-1", SKU: "HW-101", Quantity: 20, Name: "Hammer", Price: decimal.NewFromInt(8)}

	credit := req.Credit()
	assert.Equal(t, "t-1", credit.TransferID)
	assert.Equal(t, 20, credit.Quantity)
	assert.Equal(t, "Hammer", credit.Name)
	assert.True(t, credit.Price.Equal(decimal.NewFromInt(8)))
}
