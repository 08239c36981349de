// Package services contains the authorization decision logic.
package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/warden/cmd/warden/config"
	"github.com/TFMV/warden/pkg/classifier"
	"github.com/TFMV/warden/pkg/errors"
	"github.com/TFMV/warden/pkg/identity"
	"github.com/TFMV/warden/pkg/infrastructure/metrics"
	"github.com/TFMV/warden/pkg/models"
	"github.com/TFMV/warden/pkg/registry"
)

// resourceKind is the compiled form of a resource rule's kind string.
type resourceKind int

const (
	kindScopedProcedure resourceKind = iota
	kindFixedProcedure
	kindOrderLookup
)

// resource is one compiled entry of the logical-id mapping table.
type resource struct {
	kind      resourceKind
	procedure string
	table     string
	keyColumn string
}

// queryBuilder implements QueryBuilder. The resource map and policy knobs
// are resolved once at construction; per-request evaluation is pure.
type queryBuilder struct {
	resources   map[string]resource
	scoped      map[string]struct{} // logical ids where admins stay row-scoped
	registry    *registry.Registry
	classifier  *classifier.Classifier
	adminBypass bool
	passthrough bool
	scopeColumn string
	logger      zerolog.Logger
	metrics     metrics.Collector
}

// NewQueryBuilder creates a query builder from the configured policy and
// resource map.
func NewQueryBuilder(
	cfg *config.Config,
	reg *registry.Registry,
	logger zerolog.Logger,
	collector metrics.Collector,
) (QueryBuilder, error) {
	resources, err := compileResources(cfg.Resources)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigurationError, "invalid resource map")
	}

	scoped := make(map[string]struct{}, len(cfg.Policy.ScopedDashboards))
	for _, id := range cfg.Policy.ScopedDashboards {
		scoped[id] = struct{}{}
	}

	return &queryBuilder{
		resources:   resources,
		scoped:      scoped,
		registry:    reg,
		classifier:  classifier.New(),
		adminBypass: cfg.Policy.AdminBypass,
		passthrough: cfg.Policy.UnknownResource == config.UnknownPassthrough,
		scopeColumn: cfg.ScopeColumn,
		logger:      logger.With().Str("component", "builder").Logger(),
		metrics:     collector,
	}, nil
}

// compileResources turns the configured rules into the typed mapping table.
func compileResources(rules []config.ResourceRule) (map[string]resource, error) {
	resources := make(map[string]resource, len(rules))
	for _, rule := range rules {
		res := resource{
			procedure: rule.Procedure,
			table:     rule.Table,
			keyColumn: rule.KeyColumn,
		}
		switch rule.Kind {
		case config.KindScopedProcedure:
			res.kind = kindScopedProcedure
		case config.KindFixedProcedure:
			res.kind = kindFixedProcedure
		case config.KindOrderLookup:
			res.kind = kindOrderLookup
		default:
			return nil, fmt.Errorf("resource %q: unsupported kind: %s", rule.ID, rule.Kind)
		}
		resources[rule.ID] = res
	}
	return resources, nil
}

// BuildQuery runs the full authorization decision for one request.
func (b *queryBuilder) BuildQuery(ident models.CallerIdentity, req models.ResourceRequest) (models.Query, error) {
	timer := b.metrics.StartTimer("build_query_duration")
	defer timer.Stop()

	log := b.logger.With().
		Str("decision_id", uuid.NewString()).
		Str("resource", req.LogicalID).
		Str("customer", ident.ID).
		Str("role", ident.Role.String()).
		Logger()

	query, err := b.decide(log, ident, req)
	if err != nil {
		b.metrics.IncrementCounter("queries_rejected", "code", errors.GetCode(err))
		return nil, err
	}

	b.metrics.IncrementCounter("queries_built")
	log.Debug().Str("query", query.Text()).Msg("Query authorized")
	return query, nil
}

func (b *queryBuilder) decide(log zerolog.Logger, ident models.CallerIdentity, req models.ResourceRequest) (models.Query, error) {
	if res, ok := b.resources[req.LogicalID]; ok {
		switch res.kind {
		case kindScopedProcedure:
			return b.buildScopedProcedure(log, ident, res)
		case kindFixedProcedure:
			// Trusted by construction: fixed name, no parameters.
			return models.Procedure{Name: res.procedure}, nil
		case kindOrderLookup:
			return b.buildOrderLookup(log, ident, res)
		}
	}

	tables, err := b.registry.TablesWithColumn(b.scopeColumn)
	if err != nil {
		// Fail closed: no allow-list means no row-scoped access, not
		// allow-everything.
		log.Error().Err(err).Msg("Allow-list unavailable, request denied")
		return nil, err
	}
	table := req.TableName()
	if _, ok := tables[table]; ok {
		return b.buildTableQuery(log, ident, req, table)
	}

	if b.passthrough {
		log.Info().Msg("Unrecognized resource, passing through classifier")
		return b.gate(log, req.LogicalID)
	}

	log.Warn().Msg("Unrecognized resource rejected")
	return nil, errors.ErrUnknownResource
}

// buildScopedProcedure returns a procedure call scoped to the caller's own
// customer id. Parameters are bound, so the classifier is bypassed.
func (b *queryBuilder) buildScopedProcedure(log zerolog.Logger, ident models.CallerIdentity, res resource) (models.Query, error) {
	if !identity.ValidCustomerID(ident.ID) {
		log.Warn().Msg("Malformed customer id rejected")
		return nil, errors.ErrInvalidCustomerID
	}
	return models.Procedure{
		Name:   res.procedure,
		Params: []models.Parameter{{Name: "@CustomerID", Value: ident.ID}},
	}, nil
}

// buildOrderLookup synthesizes the order-keyed ad-hoc pattern and gates it.
func (b *queryBuilder) buildOrderLookup(log zerolog.Logger, ident models.CallerIdentity, res resource) (models.Query, error) {
	if !identity.ValidOrderID(ident.ScopeKey) {
		log.Warn().Msg("Malformed order id rejected")
		return nil, errors.ErrInvalidOrderID
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = '%s'",
		quoteIdent(res.table), quoteIdent(res.keyColumn), identity.EscapeLiteral(ident.ScopeKey))
	return b.gate(log, sql)
}

// buildTableQuery synthesizes a SELECT over a row-scoped table. Admins skip
// the per-caller filter unless the dashboard is listed as scoped.
func (b *queryBuilder) buildTableQuery(log zerolog.Logger, ident models.CallerIdentity, req models.ResourceRequest, table string) (models.Query, error) {
	if ident.Role == models.RoleAdmin && b.adminBypass {
		if _, forceScoped := b.scoped[req.LogicalID]; !forceScoped {
			return b.gate(log, fmt.Sprintf("SELECT * FROM %s", quoteIdent(table)))
		}
	}

	if !identity.ValidCustomerID(ident.ID) {
		log.Warn().Msg("Malformed customer id rejected")
		return nil, errors.ErrInvalidCustomerID
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = '%s'",
		quoteIdent(table), quoteIdent(b.scopeColumn), identity.EscapeLiteral(ident.ID))
	return b.gate(log, sql)
}

// gate runs ad-hoc text through the read-only classifier. Every branch that
// synthesizes or accepts text comes through here before returning.
func (b *queryBuilder) gate(log zerolog.Logger, sql string) (models.Query, error) {
	result, err := b.classifier.Classify(sql)
	if err != nil {
		log.Warn().Err(err).Str("query", sql).Msg("Query failed to parse")
		return nil, err
	}
	if !result.ReadOnly {
		// Potential abuse signal: the text parsed but contains a
		// non-SELECT statement.
		log.Warn().Str("query", sql).Strs("offending", result.Offending).Msg("Non-read-only query rejected")
		return nil, errors.New(errors.CodeUnsafeQuery, "query is not read-only").
			WithDetail("offending", strings.Join(result.Offending, ","))
	}
	return models.AdHoc{SQL: sql}, nil
}

// quoteIdent quotes an identifier for the classifier's SQL dialect.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
