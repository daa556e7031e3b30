package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/portalback/pkg/config"
	apperrors "github.com/portalback/pkg/errors"
	"github.com/portalback/pkg/metrics"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Client ERP远程仓库
type Client interface {
	// CustomerPrice 客户对产品模板的专属价格，无价目表时回退为标价
	CustomerPrice(ctx context.Context, productTmplID, customerID int64) (float64, error)
	// CreateOrder 创建销售订单并返回ERP订单ID
	CreateOrder(ctx context.Context, order SaleOrder) (int64, error)
}

// SaleOrder 销售订单
type SaleOrder struct {
	Name      string
	DateOrder time.Time
	CompanyID int64
	PartnerID int64
	AmountTax float64
	Lines     []SaleOrderLine
}

// SaleOrderLine 销售订单行
type SaleOrderLine struct {
	ProductID int64
	Name      string
	Quantity  float64
	PriceUnit float64
}

// Untaxed 不含税金额
func (o SaleOrder) Untaxed() float64 {
	var total float64
	for _, l := range o.Lines {
		total += l.Quantity * l.PriceUnit
	}
	return total
}

// values 转换为 sale.order 的创建参数
func (o SaleOrder) values() map[string]any {
	lines := make([]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, []any{0, 0, map[string]any{
			"product_id":      l.ProductID,
			"name":            l.Name,
			"product_uom_qty": l.Quantity,
			"price_unit":      l.PriceUnit,
			"tax_id":          []any{},
			"discount":        0,
		}})
	}
	untaxed := o.Untaxed()
	values := map[string]any{
		"name":           o.Name,
		"date_order":     o.DateOrder.UTC().Format("2006-01-02 15:04:05"),
		"partner_id":     o.PartnerID,
		"order_line":     lines,
		"amount_untaxed": untaxed,
		"amount_tax":     o.AmountTax,
		"amount_total":   untaxed + o.AmountTax,
	}
	if o.CompanyID > 0 {
		values["company_id"] = o.CompanyID
	}
	return values
}

// RPCClient 基于 JSON-RPC 的ERP客户端
type RPCClient struct {
	cfg     config.ERPConfig
	http    *fasthttp.Client
	metrics *metrics.Metrics
	log     *zap.Logger
	seq     atomic.Int64
}

// Option 客户端选项
type Option func(*RPCClient)

// WithHTTPClient 指定 fasthttp 客户端
func WithHTTPClient(c *fasthttp.Client) Option {
	return func(r *RPCClient) { r.http = c }
}

// WithMetrics 记录调用指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *RPCClient) { r.metrics = m }
}

// NewRPCClient 创建ERP客户端
func NewRPCClient(cfg config.ERPConfig, log *zap.Logger, opts ...Option) *RPCClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &RPCClient{
		cfg:  cfg,
		http: &fasthttp.Client{Name: "portal-erp"},
		log:  log.Named("erp"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("erp: %s: %s", e.Message, e.Data.Message)
	}
	return "erp: " + e.Message
}

// executeKW 调用模型方法，结果解码到 out
func (c *RPCClient) executeKW(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) (err error) {
	defer func() { c.metrics.ERPCall(model+"."+method, err) }()

	if kwargs == nil {
		kwargs = map[string]any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: rpcParams{
			Service: "object",
			Method:  "execute_kw",
			Args:    []any{c.cfg.DB, c.cfg.UID, c.cfg.Password, model, method, args, kwargs},
		},
		ID: c.seq.Add(1),
	})
	if err != nil {
		return fmt.Errorf("erp: encode request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.cfg.URL, "/") + "/jsonrpc")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		c.log.Warn("erp request failed", zap.String("model", model), zap.String("method", method), zap.Error(err))
		return apperrors.Unavailable("erp unavailable", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return apperrors.Unavailable("erp unavailable", fmt.Errorf("erp: unexpected status %d", status))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return apperrors.Unavailable("erp unavailable", fmt.Errorf("erp: decode response: %w", err))
	}
	if decoded.Error != nil {
		return apperrors.Unavailable("erp rejected the request", decoded.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return apperrors.Unavailable("erp unavailable", fmt.Errorf("erp: decode %s.%s result: %w", model, method, err))
	}
	return nil
}

// many2one 多对一字段，ERP以 [id, name] 或 false 表示
type many2one []any

func (m many2one) id() int64 {
	if len(m) == 0 {
		return 0
	}
	if f, ok := m[0].(float64); ok {
		return int64(f)
	}
	return 0
}

func (m *many2one) UnmarshalJSON(data []byte) error {
	if string(data) == "false" || string(data) == "null" {
		*m = nil
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// CustomerPrice 客户专属价格
// 客户无价目表或价目表中无该产品时返回产品标价
func (c *RPCClient) CustomerPrice(ctx context.Context, productTmplID, customerID int64) (float64, error) {
	var partners []struct {
		Pricelist many2one `json:"property_product_pricelist"`
	}
	err := c.executeKW(ctx, "res.partner", "read",
		[]any{[]int64{customerID}},
		map[string]any{"fields": []string{"property_product_pricelist"}},
		&partners)
	if err != nil {
		return 0, err
	}

	var pricelistID int64
	if len(partners) > 0 {
		pricelistID = partners[0].Pricelist.id()
	}
	if pricelistID == 0 {
		return c.listPrice(ctx, productTmplID)
	}

	var items []struct {
		FixedPrice float64 `json:"fixed_price"`
	}
	err = c.executeKW(ctx, "product.pricelist.item", "search_read",
		[]any{[]any{
			[]any{"pricelist_id", "=", pricelistID},
			[]any{"product_tmpl_id", "=", productTmplID},
		}},
		map[string]any{"fields": []string{"fixed_price"}},
		&items)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return c.listPrice(ctx, productTmplID)
	}
	return items[0].FixedPrice, nil
}

func (c *RPCClient) listPrice(ctx context.Context, productTmplID int64) (float64, error) {
	var templates []struct {
		ListPrice float64 `json:"list_price"`
	}
	err := c.executeKW(ctx, "product.template", "read",
		[]any{[]int64{productTmplID}},
		map[string]any{"fields": []string{"list_price"}},
		&templates)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		return 0, nil
	}
	return templates[0].ListPrice, nil
}

// CreateOrder 创建销售订单
func (c *RPCClient) CreateOrder(ctx context.Context, order SaleOrder) (int64, error) {
	var id int64
	if err := c.executeKW(ctx, "sale.order", "create", []any{order.values()}, nil, &id); err != nil {
		return 0, err
	}
	c.log.Info("erp order created", zap.String("name", order.Name), zap.Int64("erp_id", id))
	return id, nil
}
