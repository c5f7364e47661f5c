package sqlinline

const QUpsertAssetPackage = `--sql 6f8cbb32-bb6f-4628-afd3-9d5e5e6290d1
insert into asset_packages(
  id,
  brand_name,
  requester_id,
  zip_url,
  succeeded,
  package_json,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  nullif($3::text, ''),
  nullif($4::text, ''),
  $5::int,
  $6::jsonb,
  $7::timestamptz,
  now()
)
on conflict (id) do update set
  zip_url = excluded.zip_url,
  succeeded = excluded.succeeded,
  package_json = excluded.package_json,
  updated_at = now();
`

const QSelectAssetPackageByID = `--sql 44139cb5-4915-434d-a75b-452b5d6f2e67
select package_json
from asset_packages
where id = $1::uuid
limit 1;
`
