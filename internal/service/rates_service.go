package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/currency-converter/internal/config"
	"github.com/dalfonso89/currency-converter/internal/metrics"
	"github.com/dalfonso89/currency-converter/internal/models"
)

// RatesService fetches rate tables and converts amounts against them.
// Nothing is cached: every operation that needs rates makes exactly one fresh fetch per base.
type RatesService struct {
	configuration *config.Config
	logger        *logrus.Logger
	provider      RateProvider
	metrics       *metrics.ConverterMetrics
}

// NewRatesService creates a RatesService backed by the configured HTTP provider
func NewRatesService(configuration *config.Config, logger *logrus.Logger, converterMetrics *metrics.ConverterMetrics) *RatesService {
	provider := NewHTTPRateProvider(configuration.Provider, configuration.DefaultBaseCurrency, logger)
	return NewRatesServiceWithProvider(configuration, logger, provider, converterMetrics)
}

// NewRatesServiceWithProvider creates a RatesService around an arbitrary provider
func NewRatesServiceWithProvider(configuration *config.Config, logger *logrus.Logger, provider RateProvider, converterMetrics *metrics.ConverterMetrics) *RatesService {
	return &RatesService{
		configuration: configuration,
		logger:        logger,
		provider:      provider,
		metrics:       converterMetrics,
	}
}

// ProviderName returns the name of the underlying provider
func (ratesService *RatesService) ProviderName() string {
	return ratesService.provider.Name()
}

// baseCodeRule matches the base field of a batch request body
const baseCodeRule = "len=3,alpha"

var codeValidator = validator.New()

// resolveBase normalizes baseCurrency, falling back to the default base when empty.
// Malformed codes are rejected before they reach the provider or a metric label.
func (ratesService *RatesService) resolveBase(baseCurrency string) (string, error) {
	code := models.NormalizeCode(baseCurrency)
	if code == "" {
		return ratesService.configuration.DefaultBaseCurrency, nil
	}
	if err := codeValidator.Var(code, baseCodeRule); err != nil {
		return "", &InvalidCurrencyError{Code: code}
	}
	return code, nil
}

// FetchRates fetches a fresh table for baseCurrency, or the default base when empty
func (ratesService *RatesService) FetchRates(requestContext context.Context, baseCurrency string) (models.RateTable, error) {
	baseCurrency, err := ratesService.resolveBase(baseCurrency)
	if err != nil {
		return models.RateTable{}, err
	}
	started := time.Now()

	table, err := ratesService.provider.FetchRates(requestContext, baseCurrency)
	elapsed := time.Since(started)
	if err != nil {
		ratesService.metrics.ObserveFetch(ratesService.provider.Name(), baseCurrency, Classify(err).String(), elapsed)
		ratesService.logger.WithFields(logrus.Fields{
			"provider": ratesService.provider.Name(),
			"base":     baseCurrency,
			"elapsed":  elapsed.String(),
		}).Warnf("Rate fetch failed: %v", err)
		return models.RateTable{}, err
	}

	ratesService.metrics.ObserveFetch(ratesService.provider.Name(), baseCurrency, "success", elapsed)
	ratesService.logger.WithFields(logrus.Fields{
		"provider": table.Provider,
		"base":     table.Base,
		"count":    len(table.Rates),
		"elapsed":  elapsed.String(),
	}).Info("Fetched exchange rates")
	return table, nil
}

// Quote fetches the table for baseCurrency and converts one request against it.
// The amount is validated before any network call is made.
func (ratesService *RatesService) Quote(requestContext context.Context, baseCurrency string, request models.ConversionRequest) (models.ConversionResult, models.RateTable, error) {
	if err := validateAmount(request.Amount); err != nil {
		ratesService.metrics.ObserveConversion(Classify(err).String())
		return models.ConversionResult{}, models.RateTable{}, err
	}

	table, err := ratesService.FetchRates(requestContext, baseCurrency)
	if err != nil {
		return models.ConversionResult{}, models.RateTable{}, err
	}

	results, err := ConvertBatch([]models.ConversionRequest{request}, table)
	result := results[0]
	if err != nil {
		ratesService.metrics.ObserveConversion(Classify(result.Err).String())
		return result, table, result.Err
	}

	ratesService.metrics.ObserveConversion("success")
	return result, table, nil
}

// ConvertBatch fetches one table for baseCurrency and converts every request against it.
// A fetch failure is returned as is; otherwise results cover every request in order and the
// error, if any, is a *BatchError.
func (ratesService *RatesService) ConvertBatch(requestContext context.Context, baseCurrency string, requests []models.ConversionRequest) ([]models.ConversionResult, models.RateTable, error) {
	table, err := ratesService.FetchRates(requestContext, baseCurrency)
	if err != nil {
		return nil, models.RateTable{}, err
	}

	ratesService.metrics.ObserveBatch(len(requests))
	results, batchErr := ConvertBatch(requests, table)
	for _, result := range results {
		if result.Err != nil {
			ratesService.metrics.ObserveConversion(Classify(result.Err).String())
			continue
		}
		ratesService.metrics.ObserveConversion("success")
	}

	if batchErr != nil {
		ratesService.logger.WithField("base", table.Base).Warnf("Batch conversion finished with failures: %v", batchErr)
	}
	return results, table, batchErr
}

// FetchTables fetches one table per base concurrently, bounded by MaxConcurrentRequests.
// Tables are returned in the order of bases; the first failure cancels the remaining fetches.
func (ratesService *RatesService) FetchTables(requestContext context.Context, bases []string) ([]models.RateTable, error) {
	for _, base := range bases {
		if _, err := ratesService.resolveBase(base); err != nil {
			return nil, err
		}
	}
	tables := make([]models.RateTable, len(bases))

	group, groupContext := errgroup.WithContext(requestContext)
	if limit := ratesService.configuration.MaxConcurrentRequests; limit > 0 {
		group.SetLimit(limit)
	}

	for i, base := range bases {
		group.Go(func() error {
			table, err := ratesService.FetchRates(groupContext, base)
			if err != nil {
				return err
			}
			tables[i] = table
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
