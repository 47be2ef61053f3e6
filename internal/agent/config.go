package agent

// Config gathers every agent tunable: global sizing and risk, parameter
// sampling distributions, and one section per strategy.
type Config struct {
	Global        GlobalParams        `json:"global"`
	Generation    GenerationParams    `json:"generation"`
	Fundamental   FundamentalParams   `json:"fundamental"`
	Momentum      MomentumParams      `json:"momentum"`
	MeanReversion MeanReversionParams `json:"meanReversion"`
	Noise         NoiseParams         `json:"noise"`
	MarketMaker   MarketMakerParams   `json:"marketMaker"`
	CrossEffects  CrossEffectsParams  `json:"crossEffects"`
	Inventory     InventoryParams     `json:"inventory"`
	Event         EventParams         `json:"event"`
}

// GlobalParams apply to every strategy.
type GlobalParams struct {
	CapitalFraction float64 `json:"capitalFraction"`
	CashReserve     float64 `json:"cashReserve"`
	MaxOrderSize    int64   `json:"maxOrderSize"`

	SentimentDecayGlobal   float64 `json:"sentimentDecayGlobal"`
	SentimentDecayIndustry float64 `json:"sentimentDecayIndustry"`
	SentimentDecaySymbol   float64 `json:"sentimentDecaySymbol"`
}

// GenerationParams are the sampling distributions for AgentParams.
type GenerationParams struct {
	RiskAversionMean    float64 `json:"riskAversionMean"`
	RiskAversionStd     float64 `json:"riskAversionStd"`
	RiskAversionMin     float64 `json:"riskAversionMin"`
	ReactionSpeedLambda float64 `json:"reactionSpeedLambda"`
	NewsWeightMin       float64 `json:"newsWeightMin"`
	NewsWeightMax       float64 `json:"newsWeightMax"`
	ConfidenceMin       float64 `json:"confidenceMin"`
	ConfidenceMax       float64 `json:"confidenceMax"`
	TimeHorizonMu       float64 `json:"timeHorizonMu"`
	TimeHorizonSigma    float64 `json:"timeHorizonSigma"`
}

type FundamentalParams struct {
	ThresholdBase      float64 `json:"thresholdBase"`
	ThresholdRiskScale float64 `json:"thresholdRiskScale"`
	NoiseStdBase       float64 `json:"noiseStdBase"`
	NoiseStdRange      float64 `json:"noiseStdRange"`
	SentimentImpact    float64 `json:"sentimentImpact"`
	ReactionMult       float64 `json:"reactionMult"`
	LimitOffsetMax     float64 `json:"limitOffsetMax"`
}

type MomentumParams struct {
	ShortPeriodMin           int     `json:"shortPeriodMin"`
	ShortPeriodRange         int     `json:"shortPeriodRange"`
	LongPeriodOffsetMin      int     `json:"longPeriodOffsetMin"`
	LongPeriodOffsetRange    int     `json:"longPeriodOffsetRange"`
	ReactionMult             float64 `json:"reactionMult"`
	LimitOffsetMin           float64 `json:"limitOffsetMin"`
	LimitOffsetMax           float64 `json:"limitOffsetMax"`
	SignalThresholdRiskScale float64 `json:"signalThresholdRiskScale"`
	SymbolSentWeight         float64 `json:"symbolSentWeight"`
	GlobalSentWeight         float64 `json:"globalSentWeight"`
}

type MeanReversionParams struct {
	LookbackMin      int     `json:"lookbackMin"`
	LookbackRange    int     `json:"lookbackRange"`
	ZThresholdMin    float64 `json:"zThresholdMin"`
	ZThresholdRange  float64 `json:"zThresholdRange"`
	ReactionMult     float64 `json:"reactionMult"`
	LimitOffsetMax   float64 `json:"limitOffsetMax"`
	SentSymbolWeight float64 `json:"sentSymbolWeight"`
	SentGlobalWeight float64 `json:"sentGlobalWeight"`
}

type NoiseParams struct {
	TradeProbMin       float64 `json:"tradeProbMin"`
	TradeProbRange     float64 `json:"tradeProbRange"`
	SentSensitivityMin float64 `json:"sentSensitivityMin"`
	SentSensitivityMax float64 `json:"sentSensitivityMax"`
	OverreactionMult   float64 `json:"overreactionMult"`
	MarketOrderProb    float64 `json:"marketOrderProb"`
	SentimentDecay     float64 `json:"sentimentDecay"`
	IndustrySentDecay  float64 `json:"industrySentDecay"`
	SymbolSentDecay    float64 `json:"symbolSentDecay"`
	LimitOffsetMin     float64 `json:"limitOffsetMin"`
	LimitOffsetMax     float64 `json:"limitOffsetMax"`
	ConfidenceMin      float64 `json:"confidenceMin"`
	ConfidenceMax      float64 `json:"confidenceMax"`
	BuyBiasSentWeight  float64 `json:"buyBiasSentWeight"`
	BuyBiasNoiseStd    float64 `json:"buyBiasNoiseStd"`
}

type MarketMakerParams struct {
	BaseSpreadMin        float64 `json:"baseSpreadMin"`
	BaseSpreadMax        float64 `json:"baseSpreadMax"`
	InventorySkewMin     float64 `json:"inventorySkewMin"`
	InventorySkewMax     float64 `json:"inventorySkewMax"`
	MaxInventoryMin      int64   `json:"maxInventoryMin"`
	MaxInventoryMax      int64   `json:"maxInventoryMax"`
	InitialInventory     int64   `json:"initialInventory"`
	QuoteCapitalFrac     float64 `json:"quoteCapitalFrac"`
	SentimentSpreadMult  float64 `json:"sentimentSpreadMult"`
	VolatilitySpreadMult float64 `json:"volatilitySpreadMult"`
	FundamentalWeight    float64 `json:"fundamentalWeight"`
}

type CrossEffectsParams struct {
	LookbackMin        int     `json:"lookbackMin"`
	LookbackRange      int     `json:"lookbackRange"`
	ThresholdBase      float64 `json:"thresholdBase"`
	ThresholdRiskScale float64 `json:"thresholdRiskScale"`
	ReactionMult       float64 `json:"reactionMult"`
	CrossEffectWeight  float64 `json:"crossEffectWeight"`
}

type InventoryParams struct {
	TargetRatioBase             float64 `json:"targetRatioBase"`
	TargetRatioRange            float64 `json:"targetRatioRange"`
	RebalanceThresholdBase      float64 `json:"rebalanceThresholdBase"`
	RebalanceThresholdRiskScale float64 `json:"rebalanceThresholdRiskScale"`
	ReactionMult                float64 `json:"reactionMult"`
}

type EventParams struct {
	ReactionThresholdBase      float64 `json:"reactionThresholdBase"`
	ReactionThresholdRiskScale float64 `json:"reactionThresholdRiskScale"`
	CooldownBase               int     `json:"cooldownBase"`
	CooldownRange              int     `json:"cooldownRange"`
	ReactionMult               float64 `json:"reactionMult"`
}

// DefaultConfig returns the standard agent population behavior.
func DefaultConfig() Config {
	return Config{
		Global: GlobalParams{
			CapitalFraction:        0.05,
			CashReserve:            0.10,
			MaxOrderSize:           500,
			SentimentDecayGlobal:   0.95,
			SentimentDecayIndustry: 0.93,
			SentimentDecaySymbol:   0.90,
		},
		Generation: GenerationParams{
			RiskAversionMean:    1.0,
			RiskAversionStd:     0.3,
			RiskAversionMin:     0.1,
			ReactionSpeedLambda: 1.0,
			NewsWeightMin:       0.5,
			NewsWeightMax:       1.5,
			ConfidenceMin:       0.3,
			ConfidenceMax:       1.0,
			TimeHorizonMu:       3.0,
			TimeHorizonSigma:    0.5,
		},
		Fundamental: FundamentalParams{
			ThresholdBase:      0.01,
			ThresholdRiskScale: 0.02,
			NoiseStdBase:       0.005,
			NoiseStdRange:      0.01,
			SentimentImpact:    0.15,
			ReactionMult:       0.3,
			LimitOffsetMax:     0.005,
		},
		Momentum: MomentumParams{
			ShortPeriodMin:           3,
			ShortPeriodRange:         4,
			LongPeriodOffsetMin:      10,
			LongPeriodOffsetRange:    15,
			ReactionMult:             0.25,
			LimitOffsetMin:           0.0005,
			LimitOffsetMax:           0.005,
			SignalThresholdRiskScale: 0.001,
			SymbolSentWeight:         0.1,
			GlobalSentWeight:         0.05,
		},
		MeanReversion: MeanReversionParams{
			LookbackMin:      20,
			LookbackRange:    20,
			ZThresholdMin:    1.5,
			ZThresholdRange:  1.0,
			ReactionMult:     0.2,
			LimitOffsetMax:   0.005,
			SentSymbolWeight: 0.2,
			SentGlobalWeight: 0.1,
		},
		Noise: NoiseParams{
			TradeProbMin:       0.05,
			TradeProbRange:     0.10,
			SentSensitivityMin: 0.3,
			SentSensitivityMax: 0.8,
			OverreactionMult:   1.0,
			MarketOrderProb:    0.1,
			SentimentDecay:     0.98,
			IndustrySentDecay:  0.97,
			SymbolSentDecay:    0.95,
			LimitOffsetMin:     0.001,
			LimitOffsetMax:     0.01,
			ConfidenceMin:      0.2,
			ConfidenceMax:      0.5,
			BuyBiasSentWeight:  0.3,
			BuyBiasNoiseStd:    0.1,
		},
		MarketMaker: MarketMakerParams{
			BaseSpreadMin:        0.001,
			BaseSpreadMax:        0.003,
			InventorySkewMin:     0.0005,
			InventorySkewMax:     0.0015,
			MaxInventoryMin:      500,
			MaxInventoryMax:      1500,
			InitialInventory:     100,
			QuoteCapitalFrac:     0.02,
			SentimentSpreadMult:  0.5,
			VolatilitySpreadMult: 10.0,
			FundamentalWeight:    0.05,
		},
		CrossEffects: CrossEffectsParams{
			LookbackMin:        5,
			LookbackRange:      10,
			ThresholdBase:      0.02,
			ThresholdRiskScale: 0.02,
			ReactionMult:       0.2,
			CrossEffectWeight:  0.3,
		},
		Inventory: InventoryParams{
			TargetRatioBase:             0.1,
			TargetRatioRange:            0.05,
			RebalanceThresholdBase:      0.02,
			RebalanceThresholdRiskScale: 0.02,
			ReactionMult:                0.15,
		},
		Event: EventParams{
			ReactionThresholdBase:      0.03,
			ReactionThresholdRiskScale: 0.02,
			CooldownBase:               10,
			CooldownRange:              20,
			ReactionMult:               0.5,
		},
	}
}
