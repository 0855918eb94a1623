package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Activity normalizes one /activity item.
func Activity(raw json.RawMessage) Result[domain.ActivityRecord] {
	o, err := decodeObject("activity", raw)
	if err != nil {
		return fail[domain.ActivityRecord](err)
	}

	rec := domain.ActivityRecord{
		ProxyWallet:           o.wallet("proxyWallet"),
		Timestamp:             o.integer("timestamp"),
		ConditionID:           o.requiredStr("conditionId"),
		Type:                  domain.ActivityType(strings.ToUpper(o.requiredStr("type"))),
		Size:                  o.num("size"),
		UsdcSize:              o.num("usdcSize"),
		TransactionHash:       o.requiredStr("transactionHash"),
		Price:                 o.num("price"),
		Asset:                 strings.TrimSpace(o.str("asset")),
		OutcomeIndex:          int(o.integer("outcomeIndex")),
		Title:                 o.str("title"),
		Slug:                  o.str("slug"),
		Icon:                  o.str("icon"),
		EventSlug:             o.str("eventSlug"),
		Outcome:               o.str("outcome"),
		Name:                  o.str("name"),
		Pseudonym:             o.str("pseudonym"),
		Bio:                   o.str("bio"),
		ProfileImage:          o.str("profileImage"),
		ProfileImageOptimized: o.str("profileImageOptimized"),
	}
	rawSide := o.str("side")
	rec.Side = domain.ParseSide(rawSide)

	if o.err == nil && rec.Timestamp <= 0 {
		o.fail("timestamp", "must be positive")
	}
	if o.err == nil && rec.Type == domain.ActivityTrade {
		switch {
		case rec.Side == "":
			o.fail("side", "must be BUY or SELL, got "+quote(rawSide))
		case rec.Asset == "":
			o.fail("asset", "required for TRADE")
		case !o.has("size"):
			o.fail("size", "required for TRADE")
		case rec.Size < 0:
			o.fail("size", "must be >= 0")
		case !o.has("price"):
			o.fail("price", "required for TRADE")
		case rec.Price < 0 || rec.Price > 1:
			o.fail("price", "must be within [0,1]")
		}
	}
	if o.err != nil {
		return fail[domain.ActivityRecord](o.err)
	}
	return ok(rec)
}

// Activities normalizes an /activity page.
func Activities(payload []byte) ([]Result[domain.ActivityRecord], error) {
	return Each(payload, Activity)
}

// Position normalizes one /positions item.
func Position(raw json.RawMessage) Result[domain.PositionRecord] {
	o, err := decodeObject("position", raw)
	if err != nil {
		return fail[domain.PositionRecord](err)
	}
	p := domain.PositionRecord{
		ProxyWallet:        o.wallet("proxyWallet"),
		Asset:              o.requiredStr("asset"),
		ConditionID:        o.requiredStr("conditionId"),
		Size:               o.num("size"),
		AvgPrice:           o.num("avgPrice"),
		InitialValue:       o.num("initialValue"),
		CurrentValue:       o.num("currentValue"),
		CashPnl:            o.num("cashPnl"),
		PercentPnl:         o.num("percentPnl"),
		TotalBought:        o.num("totalBought"),
		RealizedPnl:        o.num("realizedPnl"),
		PercentRealizedPnl: o.num("percentRealizedPnl"),
		CurPrice:           o.num("curPrice"),
		Redeemable:         o.boolean("redeemable"),
		Mergeable:          o.boolean("mergeable"),
		Title:              o.str("title"),
		Slug:               o.str("slug"),
		Icon:               o.str("icon"),
		EventSlug:          o.str("eventSlug"),
		Outcome:            o.str("outcome"),
		OutcomeIndex:       int(o.integer("outcomeIndex")),
		OppositeOutcome:    o.str("oppositeOutcome"),
		OppositeAsset:      o.str("oppositeAsset"),
		EndDate:            o.str("endDate"),
		NegativeRisk:       o.boolean("negativeRisk"),
	}
	if o.err != nil {
		return fail[domain.PositionRecord](o.err)
	}
	return ok(p)
}

// Positions normalizes a /positions page.
func Positions(payload []byte) ([]Result[domain.PositionRecord], error) {
	return Each(payload, Position)
}

// Trader normalizes one leaderboard entry.
func Trader(raw json.RawMessage) Result[domain.Trader] {
	o, err := decodeObject("trader", raw)
	if err != nil {
		return fail[domain.Trader](err)
	}
	t := domain.Trader{
		ProxyWallet:           o.wallet("proxyWallet"),
		Amount:                o.num("amount"),
		Pseudonym:             o.str("pseudonym"),
		Name:                  o.str("name"),
		Bio:                   o.str("bio"),
		ProfileImage:          o.str("profileImage"),
		ProfileImageOptimized: o.str("profileImageOptimized"),
	}
	if o.err != nil {
		return fail[domain.Trader](o.err)
	}
	return ok(t)
}

// Traders normalizes a leaderboard page.
func Traders(payload []byte) ([]Result[domain.Trader], error) {
	return Each(payload, Trader)
}

// TradedCount normalizes a /traded response, given as an object or a
// one-element list.
func TradedCount(payload []byte, capturedAt time.Time) Result[domain.TradedCount] {
	raw, err := single(payload)
	if err != nil {
		return fail[domain.TradedCount](&domain.NormalizationError{Kind: "traded", Reason: err.Error()})
	}
	o, err := decodeObject("traded", raw)
	if err != nil {
		return fail[domain.TradedCount](err)
	}
	t := domain.TradedCount{
		User:       o.wallet("user"),
		Traded:     int(o.integer("traded")),
		CapturedAt: capturedAt,
	}
	if o.err == nil && t.Traded < 0 {
		o.fail("traded", "must be >= 0")
	}
	if o.err != nil {
		return fail[domain.TradedCount](o.err)
	}
	return ok(t)
}

// Value normalizes a /value response, given as an object or a one-element list.
func Value(payload []byte, capturedAt time.Time) Result[domain.ValueSnapshot] {
	raw, err := single(payload)
	if err != nil {
		return fail[domain.ValueSnapshot](&domain.NormalizationError{Kind: "value", Reason: err.Error()})
	}
	o, err := decodeObject("value", raw)
	if err != nil {
		return fail[domain.ValueSnapshot](err)
	}
	v := domain.ValueSnapshot{
		User:       o.wallet("user"),
		Value:      o.requiredNum("value"),
		CapturedAt: capturedAt,
	}
	if o.err != nil {
		return fail[domain.ValueSnapshot](o.err)
	}
	return ok(v)
}

func quote(s string) string {
	if s == "" {
		return "empty"
	}
	return `"` + s + `"`
}
