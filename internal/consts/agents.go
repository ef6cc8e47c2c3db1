package consts

// 模型注册表中的调用方名称，对应配置中的 [agents.<name>]；
// 专科角色直接使用角色 id 作为名称
const (
	AgentNameTriage       = "triage"
	AgentNameSynthesis    = "synthesis"
	AgentNameEvidence     = "evidence"
	AgentNameWellness     = "wellness"
	AgentNameTreatment    = "treatment"
	AgentNamePrescription = "prescription"
	AgentNameDrugSafety   = "drug_safety"
	AgentNameStructured   = "structured"
)

// ScoreVersion 风险评分算法版本，随报告一起保存
const ScoreVersion = "keyword-density/v1"
