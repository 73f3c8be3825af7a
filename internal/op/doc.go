// Package op defines the operation vocabulary consumed by the gateway.
//
// An Operation pairs a correlation id with a Command. Command is a sealed
// sum type with one variant per operation name:
//
//	save_id_with_type                       SaveIDWithType
//	save_attribute_for_id                   SaveAttribute
//	delete_attribute_for_id                 DeleteAttribute
//	set_attribute_condition_for_saves       AttributeCondition
//	set_not_existing_id_condition_for_saves NotExistingIDCondition
//	delete_attributes_for_id                DeleteAttributesForID
//	delete_all                              DeleteAll
//	get_data_for_id                         GetDataForID
//	ask_if_id_is_referenced                 AskIfReferenced
//	ask_if_id_exists                        AskIfExists
//	run_raw_query                           RunRawQuery
//
// Every Operation yields exactly one Result. Runtime and data conditions
// are reported through Result.Code; only malformed operations surface as
// Go errors (ContractError).
package op
