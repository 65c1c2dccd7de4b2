package service

import (
	"math"
	"time"

	"ticketchain/config"
	"ticketchain/internal/core/domain"
	"ticketchain/internal/core/ports"
)

// Reason tags surfaced in verdicts and committed flag annotations.
const (
	ReasonVelocityLimit = "velocity_limit"
	ReasonRapidRefund   = "rapid_refund"
	ReasonPriceMismatch = "price_mismatch"
	ReasonModelRisk     = "model_risk"
	ReasonModelHighRisk = "model_high_risk"
)

// Indicative scores attached to rule verdicts so merged verdicts carry a
// meaningful magnitude even when only rules fire.
const (
	ruleFlagScore   = 0.6
	ruleRejectScore = 0.95
)

// RuleStrategy is the fixed rule set evaluated against the acting
// wallet's recent history and the ticket in question.
type RuleStrategy struct {
	velocityLimit     int
	velocityWindow    time.Duration
	rapidRefundWindow time.Duration
	maxMarkupRatio    float64
}

// NewRuleStrategy builds the rule strategy from fraud calibration.
func NewRuleStrategy(cfg config.FraudConfig) *RuleStrategy {
	return &RuleStrategy{
		velocityLimit:     cfg.VelocityLimit,
		velocityWindow:    cfg.VelocityWindow,
		rapidRefundWindow: cfg.RapidRefundWindow,
		maxMarkupRatio:    cfg.MaxMarkupRatio,
	}
}

// Evaluate runs every rule; the verdict is the most severe outcome with
// all triggered reason tags.
func (r *RuleStrategy) Evaluate(in ports.ScoringInput) domain.FraudVerdict {
	verdict := domain.FraudVerdict{Decision: domain.DecisionAllow}

	if n := countInWindow(in.History, in.Now, r.velocityWindow); n >= r.velocityLimit {
		verdict = verdict.Merge(domain.FraudVerdict{
			Score:    ruleFlagScore,
			Decision: domain.DecisionFlag,
			Reasons:  []string{ReasonVelocityLimit},
		})
	}

	if in.Tx.Type == domain.TransactionTypeRefund &&
		in.TicketStatus == domain.TicketStatusTransferred &&
		in.Now.Sub(in.AcquiredAt) <= r.rapidRefundWindow {
		verdict = verdict.Merge(domain.FraudVerdict{
			Score:    ruleFlagScore,
			Decision: domain.DecisionFlag,
			Reasons:  []string{ReasonRapidRefund},
		})
	}

	if r.priceMismatch(in) {
		verdict = verdict.Merge(domain.FraudVerdict{
			Score:    ruleRejectScore,
			Decision: domain.DecisionReject,
			Reasons:  []string{ReasonPriceMismatch},
		})
	}

	return verdict
}

// priceMismatch checks the transaction amount against the ticket type's
// recorded price: mints must pay exactly the list price, resales may not
// exceed the markup cap.
func (r *RuleStrategy) priceMismatch(in ports.ScoringInput) bool {
	switch in.Tx.Type {
	case domain.TransactionTypeMint:
		return in.Tx.Mint.Price != in.ListPrice
	case domain.TransactionTypeTransfer:
		if in.ListPrice <= 0 {
			return false
		}
		return float64(in.Tx.Transfer.Price) > r.maxMarkupRatio*float64(in.ListPrice)
	default:
		return false
	}
}

func countInWindow(history []domain.Transaction, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, tx := range history {
		if !tx.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// ModelStrategy scores transactions through the injected trained model
// capability and maps the score to a decision by thresholds.
type ModelStrategy struct {
	model           ports.RiskModel
	velocityWindow  time.Duration
	flagThreshold   float64
	rejectThreshold float64
}

// NewModelStrategy builds the model strategy.
func NewModelStrategy(model ports.RiskModel, cfg config.FraudConfig) *ModelStrategy {
	return &ModelStrategy{
		model:           model,
		velocityWindow:  cfg.VelocityWindow,
		flagThreshold:   cfg.FlagThreshold,
		rejectThreshold: cfg.RejectThreshold,
	}
}

// Features derives the fixed-width feature vector the model contract
// expects: {velocity, price ratio vs list, hour of day, type ordinal},
// the last two normalized to [0, 1].
func (m *ModelStrategy) Features(in ports.ScoringInput) []float64 {
	velocity := float64(countInWindow(in.History, in.Now, m.velocityWindow))

	priceRatio := 1.0
	if in.ListPrice > 0 {
		priceRatio = float64(in.Tx.Amount()) / float64(in.ListPrice)
	}

	hour := float64(in.Tx.Timestamp.UTC().Hour()) / 24.0

	var ordinal float64
	switch in.Tx.Type {
	case domain.TransactionTypeMint:
		ordinal = 1
	case domain.TransactionTypeTransfer:
		ordinal = 2
	case domain.TransactionTypeRefund:
		ordinal = 3
	}

	return []float64{velocity, priceRatio, hour, ordinal / 3.0}
}

// Evaluate maps the model score to a verdict.
func (m *ModelStrategy) Evaluate(in ports.ScoringInput) domain.FraudVerdict {
	score := m.model.Score(m.Features(in))

	switch {
	case score >= m.rejectThreshold:
		return domain.FraudVerdict{Score: score, Decision: domain.DecisionReject, Reasons: []string{ReasonModelHighRisk}}
	case score >= m.flagThreshold:
		return domain.FraudVerdict{Score: score, Decision: domain.DecisionFlag, Reasons: []string{ReasonModelRisk}}
	default:
		return domain.FraudVerdict{Score: score, Decision: domain.DecisionAllow}
	}
}

// CompositeScorer runs every strategy and merges the verdicts: most
// severe decision wins, reasons are unioned. It never mutates ledger or
// catalog state.
type CompositeScorer struct {
	strategies []ports.FraudStrategy
}

// NewCompositeScorer composes strategies into one scorer.
func NewCompositeScorer(strategies ...ports.FraudStrategy) *CompositeScorer {
	return &CompositeScorer{strategies: strategies}
}

// Evaluate merges all strategy verdicts.
func (s *CompositeScorer) Evaluate(in ports.ScoringInput) domain.FraudVerdict {
	verdict := domain.FraudVerdict{Decision: domain.DecisionAllow}
	for _, strat := range s.strategies {
		verdict = verdict.Merge(strat.Evaluate(in))
	}
	return verdict
}

// LogisticRiskModel is the default trained capability: a fixed-weight
// logistic function over the standard feature vector. Weights come from
// an offline fit; training itself is out of scope.
type LogisticRiskModel struct {
	weights []float64
	bias    float64
}

// NewLogisticRiskModel returns the model with the shipped calibration.
func NewLogisticRiskModel() *LogisticRiskModel {
	return &LogisticRiskModel{
		weights: []float64{0.9, 1.2, 0.3, 0.2},
		bias:    -4.0,
	}
}

// Score returns a probability-like risk score in [0, 1].
func (m *LogisticRiskModel) Score(features []float64) float64 {
	z := m.bias
	for i, w := range m.weights {
		if i >= len(features) {
			break
		}
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z))
}
