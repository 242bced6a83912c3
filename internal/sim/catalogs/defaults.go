package catalogs

// Default returns the built-in catalogs. Load starts from these and overlays config files.
func Default() *Catalogs {
	defs := []ModuleDef{
		{
			Kind: KindCryptoGenerator, Name: "Crypto Miner", Cost: 50,
			BaseGenerationRate: 0.5, EnergyConsumption: 2.0,
			ConnectsTo:  []Kind{KindRadioAntenna, KindSolarPanel, KindBattery, KindRecycling},
			Purchasable: true,
		},
		{Kind: KindSolarPanel, Name: "Solar Panel", Cost: 30, EnergyGenerated: 2.0, Purchasable: true},
		{Kind: KindOxygenReserve, Name: "Oxygen Reserve", Cost: 40, OxygenProduction: 3.0, Purchasable: true},
		{
			Kind: KindDormitory, Name: "Dormitory", Cost: 60,
			OccupantGenerated: 2, OxygenConsumption: 1.2, FoodConsumption: 0.5,
			Replaces: true, Purchasable: true,
		},
		{
			Kind: KindGreenhouse, Name: "Greenhouse", Cost: 80,
			OxygenConsumption: 1.0, FoodProduction: 2.0,
			ConnectsTo: []Kind{KindOxygenReserve, KindRecycling},
			Advanced:   true, Purchasable: true,
		},
		{
			Kind: KindBattery, Name: "Battery Bank", Cost: 100, StorageBonus: 500,
			ConnectsTo: []Kind{KindSolarPanel},
			Advanced:   true, Purchasable: true,
		},
		{
			Kind: KindRecycling, Name: "Recycling Unit", Cost: 100, StorageBonus: 500,
			ConnectsTo: []Kind{KindOxygenReserve},
			Advanced:   true, Purchasable: true,
		},
		{
			Kind: KindRadioAntenna, Name: "Comm Antenna", Cost: 200,
			IncomeAmount: 50, IncomeInterval: 60,
			Advanced: true, Purchasable: true,
		},
		{
			Kind: KindScienceLab, Name: "Science Lab", Cost: 200,
			ScienceRate: 1, EnergyConsumption: 5.0,
			Advanced: true, Purchasable: true,
		},
		{
			Kind: KindDroneHangar, Name: "Drone Hangar", Cost: 250,
			EnergyConsumption: 3.0, DroneCount: 1,
			Advanced: true, Purchasable: true,
		},
		{Kind: KindJumpDrive, Name: "Jump Core", Cost: 0},
	}

	c := &Catalogs{
		Modules: ModuleCatalog{
			Order:  append([]Kind(nil), AllKinds...),
			ByKind: make(map[Kind]ModuleDef, len(defs)),
			Digest: "builtin",
		},
	}
	for _, d := range defs {
		c.Modules.ByKind[d.Kind] = d
	}

	_ = c.Boons.set([]BoonDef{
		{ID: "solar", Title: "Solar ++", Description: "+20% energy production", Effect: EffectSolarEfficiency, Value: 0.2},
		{ID: "crypto", Title: "Crypto Guru", Description: "+20% crypto gains", Effect: EffectCryptoEfficiency, Value: 0.2},
		{ID: "oxygen", Title: "Pro Recycler", Description: "+20% oxygen production", Effect: EffectOxygenEfficiency, Value: 0.2},
		{ID: "food", Title: "Bio Greenhouse", Description: "+20% food production", Effect: EffectFoodEfficiency, Value: 0.2},
		{ID: "cost", Title: "Standardisation", Description: "-15% module cost", Effect: EffectCostMultiplier, Value: 0.85},
		{ID: "pop", Title: "Sobriety", Description: "-15% crew consumption", Effect: EffectPopulationConsumption, Value: 0.85},
		{ID: "storage", Title: "Extended Tanks", Description: "+20% max capacity", Effect: EffectStorageMultiplier, Value: 1.2},
		{ID: "radio", Title: "Boosted Relay", Description: "+25% antenna gains", Effect: EffectAntennaEfficiency, Value: 0.25},
		{ID: "drill", Title: "Turbo Drills", Description: "+25% miner efficiency", Effect: EffectCryptoEfficiency, Value: 0.25},
	}, "builtin")

	c.Goals = GoalCatalog{
		Templates: []GoalTemplate{
			{ID: "crypto", Title: "Space Fortune", Metric: MetricCurrency, Target: 5000},
			{ID: "pop", Title: "World Station", Metric: MetricPopulation, Target: 25},
			{ID: "food", Title: "Stellar Granary", Metric: MetricFood, Target: 1000},
			{ID: "oxygen", Title: "Pure Atmosphere", Metric: MetricOxygenMax, Target: 3000},
			{ID: "energy", Title: "Energy Core", Metric: MetricEnergyMax, Target: 2500},
			{ID: "modules", Title: "Infinite Expansion", Metric: MetricModules, Target: 30},
			{ID: "green", Title: "Sealed Ecosystem", Metric: MetricGreenhouses, Target: 5},
			{ID: "antennas", Title: "Deep Network", Metric: MetricAntennas, Target: 3},
		},
		Digest: "builtin",
	}

	c.Trades = TradeCatalog{
		Offers: []TradeDef{
			{ID: "c_to_o", Title: "Buy Oxygen", CostRes: ResCurrency, CostVal: 200, GiveRes: ResOxygen, GiveVal: 500},
			{ID: "c_to_f", Title: "Buy Rations", CostRes: ResCurrency, CostVal: 150, GiveRes: ResFood, GiveVal: 300},
			{ID: "f_to_c", Title: "Sell Surplus", CostRes: ResFood, CostVal: 100, GiveRes: ResCurrency, GiveVal: 250},
			{ID: "o_to_c", Title: "Sell Gas", CostRes: ResOxygen, CostVal: 200, GiveRes: ResCurrency, GiveVal: 300},
			{ID: "c_to_e", Title: "Emergency Battery", CostRes: ResCurrency, CostVal: 100, GiveRes: ResEnergy, GiveVal: 400},
		},
		Digest: "builtin",
	}

	c.Gifts = GiftCatalog{
		Gifts: []GiftDef{
			{ID: "solar", Title: "Solar Panel", Kind: KindSolarPanel},
			{ID: "oxygen", Title: "Oxygen Support", Kind: KindOxygenReserve},
			{ID: "pop", Title: "Spare Dormitory", Kind: KindDormitory},
		},
		Digest: "builtin",
	}
	return c
}

// Boon effect names.
const (
	EffectSolarEfficiency       = "solar_efficiency"
	EffectCryptoEfficiency      = "crypto_efficiency"
	EffectOxygenEfficiency      = "oxygen_efficiency"
	EffectFoodEfficiency        = "food_efficiency"
	EffectScienceEfficiency     = "science_efficiency"
	EffectAntennaEfficiency     = "antenna_efficiency"
	EffectCostMultiplier        = "cost_multiplier"
	EffectPopulationConsumption = "population_consumption"
	EffectStorageMultiplier     = "storage_multiplier"
)
