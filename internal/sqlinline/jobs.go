package sqlinline

const QClaimPackageJob = `--sql a2ae34e2-1e30-4194-a604-9448ed4c3f7f
with next_job as (
    select id
    from package_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update package_jobs
    set status = 'RUNNING', attempts = attempts + 1, updated_at = now()
    where id in (select id from next_job)
    returning id, status, metadata, coalesce(source_key, ''), created_at, updated_at
)
select * from updated;
`

const QEnqueuePackageJob = `--sql 322fa879-0411-455a-9b74-c8605d1cba75
insert into package_jobs(id, status, metadata, source_key, attempts, created_at, updated_at)
values (gen_random_uuid(), 'QUEUED', $1::jsonb, nullif($2::text, ''), 0, now(), now())
returning id;
`

const QMarkPackageJobSucceeded = `--sql dd690f0c-d13f-49d7-85fe-32cd0b691818
update package_jobs
set status = 'SUCCEEDED', package_id = $2::uuid, error_message = null, updated_at = now()
where id = $1::uuid;
`

const QMarkPackageJobFailed = `--sql ad414518-b400-4544-97b3-bd7f48260d61
update package_jobs
set status = 'FAILED', error_message = $2::text, updated_at = now()
where id = $1::uuid;
`
