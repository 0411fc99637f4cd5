package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/academy-enrollment-api/pkg/config"
)

// ErrCouponNotFound is returned when the CRM has no coupon with the given code.
var ErrCouponNotFound = errors.New("crm coupon not found")

// Coupon is the CRM's view of a discount code.
type Coupon struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
	StartDate     string  `json:"startDate,omitempty"`
	EndDate       string  `json:"endDate,omitempty"`
}

// CRMClient manages coupons in the external CRM.
type CRMClient struct {
	cfg    config.CRMConfig
	client *jsonClient
}

// NewCRMClient builds a CRM client from configuration.
func NewCRMClient(cfg config.CRMConfig) *CRMClient {
	return &CRMClient{
		cfg: cfg,
		client: newJSONClient("crm", cfg.Timeout, map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
			"Version":       "2021-07-28",
		}),
	}
}

// Configured reports whether CRM calls can be attempted.
func (c *CRMClient) Configured() bool {
	return c != nil && c.cfg.Configured()
}

func (c *CRMClient) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if c.cfg.LocationID != "" {
		query.Set("altId", c.cfg.LocationID)
		query.Set("altType", "location")
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + query.Encode()
}

// ListCoupons returns the CRM coupon catalogue.
func (c *CRMClient) ListCoupons(ctx context.Context) ([]Coupon, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("crm not configured")
	}
	var out struct {
		Data []Coupon `json:"data"`
	}
	if err := c.client.do(ctx, http.MethodGet, c.endpoint("/coupons", url.Values{"limit": {"100"}}), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FindCouponByCode looks a coupon up by case-insensitive code.
func (c *CRMClient) FindCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	coupons, err := c.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	for i := range coupons {
		if strings.EqualFold(coupons[i].Code, code) {
			return &coupons[i], nil
		}
	}
	return nil, ErrCouponNotFound
}

// CreateCoupon registers a coupon and returns the CRM's copy.
func (c *CRMClient) CreateCoupon(ctx context.Context, coupon Coupon) (*Coupon, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("crm not configured")
	}
	body := map[string]interface{}{
		"name":          coupon.Name,
		"code":          coupon.Code,
		"discountType":  coupon.DiscountType,
		"discountValue": coupon.DiscountValue,
	}
	if coupon.StartDate != "" {
		body["startDate"] = coupon.StartDate
	}
	if coupon.EndDate != "" {
		body["endDate"] = coupon.EndDate
	}
	if c.cfg.LocationID != "" {
		body["altId"] = c.cfg.LocationID
		body["altType"] = "location"
	}
	var created Coupon
	if err := c.client.do(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/coupons", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteCoupon removes a coupon by CRM id.
func (c *CRMClient) DeleteCoupon(ctx context.Context, id string) error {
	if !c.Configured() {
		return fmt.Errorf("crm not configured")
	}
	return c.client.do(ctx, http.MethodDelete, c.endpoint("/coupons", url.Values{"id": {id}}), nil, nil)
}

// DeleteCouponByCode looks the code up and deletes it. A code the CRM no
// longer knows is treated as already deleted.
func (c *CRMClient) DeleteCouponByCode(ctx context.Context, code string) error {
	coupon, err := c.FindCouponByCode(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.DeleteCoupon(ctx, coupon.ID)
}
