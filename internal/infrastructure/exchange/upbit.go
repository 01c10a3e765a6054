package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_signal_bot/internal/domain"
)

const (
	UpbitBaseURL = "https://api.upbit.com"
	UpbitWSURL   = "wss://api.upbit.com/websocket/v1"

	// Ticker prices older than this fall back to REST.
	priceCacheTTL = 2 * time.Second
)

type cachedPrice struct {
	price float64
	at    time.Time
}

// UpbitAdapter talks to the Upbit spot exchange over REST and keeps a live
// price cache fed by the public websocket ticker stream.
type UpbitAdapter struct {
	accessKey string
	secretKey string
	baseURL   string
	wsURL     string
	client    *http.Client

	wsConn    *websocket.Conn
	callbacks []func(market string, price float64)
	prices    map[string]cachedPrice
	mu        sync.Mutex
}

func NewUpbitAdapter(accessKey, secretKey, baseURL, wsURL string) *UpbitAdapter {
	if baseURL == "" {
		baseURL = UpbitBaseURL
	}
	if wsURL == "" {
		wsURL = UpbitWSURL
	}
	return &UpbitAdapter{
		accessKey: accessKey,
		secretKey: secretKey,
		baseURL:   baseURL,
		wsURL:     wsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		prices:    make(map[string]cachedPrice),
	}
}

// --- Auth ---

// authToken builds the JWT bearer token Upbit expects: HS256 over a payload
// carrying the access key, a nonce and, when query params are present, the
// SHA512 hash of the encoded query string.
func (u *UpbitAdapter) authToken(query url.Values) (string, error) {
	payload := map[string]interface{}{
		"access_key": u.accessKey,
		"nonce":      newNonce(),
	}
	if len(query) > 0 {
		sum := sha512.Sum512([]byte(query.Encode()))
		payload["query_hash"] = hex.EncodeToString(sum[:])
		payload["query_hash_alg"] = "SHA512"
	}

	header := base64URL([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	signingInput := header + "." + base64URL(body)

	h := hmac.New(sha256.New, []byte(u.secretKey))
	h.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	return signingInput + "." + signature, nil
}

func base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// --- REST ---

func (u *UpbitAdapter) sendRequest(ctx context.Context, method, path string, query url.Values, signed bool) ([]byte, error) {
	endpoint := u.baseURL + path
	var body io.Reader
	if len(query) > 0 {
		if method == http.MethodGet {
			endpoint += "?" + query.Encode()
		} else {
			body = strings.NewReader(query.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if signed {
		token, err := u.authToken(query)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("upbit API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetCurrentPrice serves from the websocket-fed cache when fresh, otherwise
// falls back to the REST ticker.
func (u *UpbitAdapter) GetCurrentPrice(ctx context.Context, market string) (float64, error) {
	u.mu.Lock()
	cached, ok := u.prices[market]
	u.mu.Unlock()
	if ok && time.Since(cached.at) < priceCacheTTL {
		return cached.price, nil
	}

	query := url.Values{"markets": {market}}
	resp, err := u.sendRequest(ctx, http.MethodGet, "/v1/ticker", query, false)
	if err != nil {
		return 0, err
	}

	var tickers []struct {
		Market     string  `json:"market"`
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.Unmarshal(resp, &tickers); err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("market not found: %s", market)
	}

	price := tickers[0].TradePrice
	u.mu.Lock()
	u.prices[market] = cachedPrice{price: price, at: time.Now()}
	u.mu.Unlock()
	return price, nil
}

// GetCandles fetches minute candles, oldest first.
func (u *UpbitAdapter) GetCandles(ctx context.Context, market, interval string, count int) ([]domain.Candle, error) {
	unit, err := strconv.Atoi(interval)
	if err != nil {
		return nil, fmt.Errorf("bad candle interval %q: %w", interval, err)
	}

	query := url.Values{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}
	path := fmt.Sprintf("/v1/candles/minutes/%d", unit)
	resp, err := u.sendRequest(ctx, http.MethodGet, path, query, false)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Timestamp    int64   `json:"timestamp"`
		OpeningPrice float64 `json:"opening_price"`
		HighPrice    float64 `json:"high_price"`
		LowPrice     float64 `json:"low_price"`
		TradePrice   float64 `json:"trade_price"`
		Volume       float64 `json:"candle_acc_trade_volume"`
	}
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, c := range raw {
		candles = append(candles, domain.Candle{
			Time:   c.Timestamp / 1000,
			Open:   c.OpeningPrice,
			High:   c.HighPrice,
			Low:    c.LowPrice,
			Close:  c.TradePrice,
			Volume: c.Volume,
		})
	}

	// Upbit returns newest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

type upbitAccount struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Locked   string `json:"locked"`
}

func (u *UpbitAdapter) GetBalance(ctx context.Context, currency string) (float64, error) {
	balances, err := u.GetBalances(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range balances {
		if b.Currency == currency {
			return b.Amount, nil
		}
	}
	return 0, nil
}

func (u *UpbitAdapter) GetBalances(ctx context.Context) ([]domain.Balance, error) {
	resp, err := u.sendRequest(ctx, http.MethodGet, "/v1/accounts", nil, true)
	if err != nil {
		return nil, err
	}

	var accounts []upbitAccount
	if err := json.Unmarshal(resp, &accounts); err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(accounts))
	for _, a := range accounts {
		amount, _ := strconv.ParseFloat(a.Balance, 64)
		balances = append(balances, domain.Balance{Currency: a.Currency, Amount: amount})
	}
	return balances, nil
}

type upbitOrderResp struct {
	UUID      string `json:"uuid"`
	Market    string `json:"market"`
	Side      string `json:"side"`
	Volume    string `json:"volume"`
	Price     string `json:"price"`
	CreatedAt string `json:"created_at"`
}

// BuyMarket places a market buy for a cash notional (ord_type=price).
func (u *UpbitAdapter) BuyMarket(ctx context.Context, market string, amount float64) (*domain.Order, error) {
	query := url.Values{
		"market":   {market},
		"side":     {"bid"},
		"price":    {strconv.FormatFloat(amount, 'f', -1, 64)},
		"ord_type": {"price"},
	}
	return u.placeOrder(ctx, query)
}

// SellMarket places a market sell for a unit quantity (ord_type=market).
func (u *UpbitAdapter) SellMarket(ctx context.Context, market string, volume float64) (*domain.Order, error) {
	query := url.Values{
		"market":   {market},
		"side":     {"ask"},
		"volume":   {strconv.FormatFloat(volume, 'f', 8, 64)},
		"ord_type": {"market"},
	}
	return u.placeOrder(ctx, query)
}

func (u *UpbitAdapter) placeOrder(ctx context.Context, query url.Values) (*domain.Order, error) {
	resp, err := u.sendRequest(ctx, http.MethodPost, "/v1/orders", query, true)
	if err != nil {
		return nil, err
	}

	var raw upbitOrderResp
	if err := json.Unmarshal(resp, &raw); err != nil {
		return nil, err
	}
	if raw.UUID == "" {
		return nil, fmt.Errorf("upbit order rejected: %s", string(resp))
	}

	volume, _ := strconv.ParseFloat(raw.Volume, 64)
	amount, _ := strconv.ParseFloat(raw.Price, 64)
	createdAt, _ := time.Parse(time.RFC3339, raw.CreatedAt)

	return &domain.Order{
		UUID:      raw.UUID,
		Market:    raw.Market,
		Side:      raw.Side,
		Volume:    volume,
		Amount:    amount,
		CreatedAt: createdAt,
	}, nil
}

// --- WebSocket ---

// OnPriceUpdate registers a callback fired on each ticker frame.
func (u *UpbitAdapter) OnPriceUpdate(callback func(market string, price float64)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callbacks = append(u.callbacks, callback)
}

// ConnectWS opens the public ticker stream for the given markets. The read
// loop keeps the price cache warm; REST remains the fallback when the
// stream drops.
func (u *UpbitAdapter) ConnectWS(markets []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.wsConn != nil {
		return u.subscribe(markets)
	}

	c, _, err := websocket.DefaultDialer.Dial(u.wsURL, nil)
	if err != nil {
		return err
	}
	u.wsConn = c

	go u.readLoop(c)

	return u.subscribe(markets)
}

func (u *UpbitAdapter) subscribe(markets []string) error {
	if len(markets) == 0 {
		return nil
	}
	msg := []interface{}{
		map[string]string{"ticket": newNonce()},
		map[string]interface{}{"type": "ticker", "codes": markets},
	}
	return u.wsConn.WriteJSON(msg)
}

func (u *UpbitAdapter) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		u.mu.Lock()
		if u.wsConn == c {
			u.wsConn = nil
		}
		u.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			return
		}

		var tick struct {
			Type       string  `json:"type"`
			Code       string  `json:"code"`
			TradePrice float64 `json:"trade_price"`
		}
		if err := json.Unmarshal(message, &tick); err != nil {
			continue
		}
		if tick.Type != "ticker" || tick.Code == "" {
			continue
		}

		u.mu.Lock()
		u.prices[tick.Code] = cachedPrice{price: tick.TradePrice, at: time.Now()}
		callbacks := make([]func(string, float64), len(u.callbacks))
		copy(callbacks, u.callbacks)
		u.mu.Unlock()

		for _, cb := range callbacks {
			cb(tick.Code, tick.TradePrice)
		}
	}
}

// Close shuts the websocket stream if open.
func (u *UpbitAdapter) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.wsConn != nil {
		err := u.wsConn.Close()
		u.wsConn = nil
		return err
	}
	return nil
}
