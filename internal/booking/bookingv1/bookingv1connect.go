package bookingv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/voicetyped/flightbot/internal/connectutil"
)

// BookingServiceName is the fully-qualified name of the BookingService service.
const BookingServiceName = "flightbot.booking.v1.BookingService"

// Procedure paths of the BookingService.
const (
	BookingServiceStartBookingProcedure  = "/flightbot.booking.v1.BookingService/StartBooking"
	BookingServiceSendReplyProcedure     = "/flightbot.booking.v1.BookingService/SendReply"
	BookingServiceGetBookingProcedure    = "/flightbot.booking.v1.BookingService/GetBooking"
	BookingServiceCancelBookingProcedure = "/flightbot.booking.v1.BookingService/CancelBooking"
)

// BookingServiceHandler is implemented by the server.
type BookingServiceHandler interface {
	StartBooking(context.Context, *connect.Request[StartBookingRequest]) (*connect.Response[StartBookingResponse], error)
	SendReply(context.Context, *connect.Request[SendReplyRequest]) (*connect.Response[SendReplyResponse], error)
	GetBooking(context.Context, *connect.Request[GetBookingRequest]) (*connect.Response[GetBookingResponse], error)
	CancelBooking(context.Context, *connect.Request[CancelBookingRequest]) (*connect.Response[CancelBookingResponse], error)
}

// NewBookingServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewBookingServiceHandler(svc BookingServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(connectutil.JSONCodec())}, opts...)

	startBookingHandler := connect.NewUnaryHandler(BookingServiceStartBookingProcedure, svc.StartBooking, opts...)
	sendReplyHandler := connect.NewUnaryHandler(BookingServiceSendReplyProcedure, svc.SendReply, opts...)
	getBookingHandler := connect.NewUnaryHandler(BookingServiceGetBookingProcedure, svc.GetBooking, opts...)
	cancelBookingHandler := connect.NewUnaryHandler(BookingServiceCancelBookingProcedure, svc.CancelBooking, opts...)

	return "/" + BookingServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case BookingServiceStartBookingProcedure:
			startBookingHandler.ServeHTTP(w, r)
		case BookingServiceSendReplyProcedure:
			sendReplyHandler.ServeHTTP(w, r)
		case BookingServiceGetBookingProcedure:
			getBookingHandler.ServeHTTP(w, r)
		case BookingServiceCancelBookingProcedure:
			cancelBookingHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// BookingServiceClient is a client for the BookingService.
type BookingServiceClient interface {
	StartBooking(context.Context, *connect.Request[StartBookingRequest]) (*connect.Response[StartBookingResponse], error)
	SendReply(context.Context, *connect.Request[SendReplyRequest]) (*connect.Response[SendReplyResponse], error)
	GetBooking(context.Context, *connect.Request[GetBookingRequest]) (*connect.Response[GetBookingResponse], error)
	CancelBooking(context.Context, *connect.Request[CancelBookingRequest]) (*connect.Response[CancelBookingResponse], error)
}

// NewBookingServiceClient constructs a client for the BookingService. baseURL
// is the scheme and host of the server, e.g. http://localhost:8080.
func NewBookingServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BookingServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(connectutil.JSONCodec())}, opts...)
	return &bookingServiceClient{
		startBooking: connect.NewClient[StartBookingRequest, StartBookingResponse](
			httpClient, baseURL+BookingServiceStartBookingProcedure, opts...),
		sendReply: connect.NewClient[SendReplyRequest, SendReplyResponse](
			httpClient, baseURL+BookingServiceSendReplyProcedure, opts...),
		getBooking: connect.NewClient[GetBookingRequest, GetBookingResponse](
			httpClient, baseURL+BookingServiceGetBookingProcedure, opts...),
		cancelBooking: connect.NewClient[CancelBookingRequest, CancelBookingResponse](
			httpClient, baseURL+BookingServiceCancelBookingProcedure, opts...),
	}
}

type bookingServiceClient struct {
	startBooking  *connect.Client[StartBookingRequest, StartBookingResponse]
	sendReply     *connect.Client[SendReplyRequest, SendReplyResponse]
	getBooking    *connect.Client[GetBookingRequest, GetBookingResponse]
	cancelBooking *connect.Client[CancelBookingRequest, CancelBookingResponse]
}

func (c *bookingServiceClient) StartBooking(ctx context.Context, req *connect.Request[StartBookingRequest]) (*connect.Response[StartBookingResponse], error) {
	return c.startBooking.CallUnary(ctx, req)
}

func (c *bookingServiceClient) SendReply(ctx context.Context, req *connect.Request[SendReplyRequest]) (*connect.Response[SendReplyResponse], error) {
	return c.sendReply.CallUnary(ctx, req)
}

func (c *bookingServiceClient) GetBooking(ctx context.Context, req *connect.Request[GetBookingRequest]) (*connect.Response[GetBookingResponse], error) {
	return c.getBooking.CallUnary(ctx, req)
}

func (c *bookingServiceClient) CancelBooking(ctx context.Context, req *connect.Request[CancelBookingRequest]) (*connect.Response[CancelBookingResponse], error) {
	return c.cancelBooking.CallUnary(ctx, req)
}
